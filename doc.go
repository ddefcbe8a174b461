// Package gatehouse is a small MVC kernel: a route table maps request paths to
// controller methods, a dispatcher applies per-controller access rules, and an
// authentication gate turns credentials into a registered session.
//
// # Quick Start
//
// Register targets, describe routes, and serve:
//
//	targets := gatehouse.NewTargets()
//	gatehouse.RegisterAuthTargets(targets)
//	gatehouse.Controller(targets, "Pages", gatehouse.CapFront,
//	    func() *Pages { return &Pages{repo: repo} },
//	    gatehouse.Methods[*Pages]{"show": (*Pages).Show},
//	)
//
//	app, err := gatehouse.New(
//	    gatehouse.WithTargets(targets),
//	    gatehouse.WithRoutes(
//	        gatehouse.Route{Pattern: "/page/{slug}", Target: "Pages@show"},
//	        gatehouse.Route{Pattern: "/login", Target: "Auth@form", Methods: []string{"GET"}},
//	        gatehouse.Route{Pattern: "/login", Target: "Auth@login", Methods: []string{"POST"}},
//	    ),
//	    gatehouse.WithGate(gate),
//	    gatehouse.WithSessions(session.NewMemoryStore()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := app.Run(":8080"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Targets
//
// A route target is either a callable name ("home"), a controller method
// ("Pages@show"), or a module controller method ("blog::Posts@show").
// Controllers are built per request, and only after the dispatcher grants
// access. Target methods receive arguments by route arity: nothing for a
// route without parameters, the bare value for one parameter, and
// [route.Params] for more.
//
// # Access rules
//
// A controller's capabilities select one category:
//
//   - CapAuthGated: anonymous visitors only; signed-in visitors are redirected to the admin URL.
//   - CapBackend: signed-in visitors only; others are redirected to the login URL.
//   - CapFront: everyone.
//   - CapAPI: HTTP Basic credentials configured with WithAPICredentials.
//
// Module controllers are always served.
//
// # Hooks
//
// Dispatch and authentication publish actions and filters on a [Hooks]
// registry. Each request works on a clone, so handlers added during a
// request never leak into the next one:
//
//	hooks.AddAction(gatehouse.HookDenied, func(ctx context.Context, args ...any) {
//	    d := args[0].(*gatehouse.Dispatch)
//	    slog.InfoContext(ctx, "denied", "path", d.Path, "reason", d.Reason)
//	})
package gatehouse
