package main

import (
	"net/http"

	"github.com/dmitrymomot/gatehouse"
)

// sessionController reports the caller's authentication state to front-end clients.
type sessionController struct{}

type sessionStatus struct {
	User          string `json:"user,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

func (sessionController) Show(c gatehouse.Context, _ ...any) error {
	return c.JSON(http.StatusOK, sessionStatus{
		Authenticated: c.IsAuthenticated(),
		User:          c.UserID(),
	})
}

func registerTargets(t *gatehouse.Targets) {
	gatehouse.RegisterAuthTargets(t)
	gatehouse.Controller(t, "Session", gatehouse.CapFront,
		func() sessionController { return sessionController{} },
		gatehouse.Methods[sessionController]{"show": sessionController.Show},
	)
}
