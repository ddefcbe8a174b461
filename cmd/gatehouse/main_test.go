package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatehouse"
	"github.com/dmitrymomot/gatehouse/pkg/config"
	"github.com/dmitrymomot/gatehouse/pkg/credential"
	"github.com/dmitrymomot/gatehouse/pkg/logger"
	"github.com/dmitrymomot/gatehouse/pkg/password"
)

const routesYAML = `routes:
  - pattern: /login
    target: Auth@form
    methods: [GET]
  - pattern: /login
    target: Auth@login
    methods: [POST]
  - pattern: /session
    target: Session@show
`

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// testConfig writes a route file and returns a config using it.
func testConfig(t *testing.T, vars map[string]string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	routes := filepath.Join(dir, "routes.yaml")
	require.NoError(t, os.WriteFile(routes, []byte(routesYAML), 0o600))

	env := map[string]string{
		"ROUTES_FILE": routes,
		"MODULES_DIR": filepath.Join(dir, "modules"),
	}
	for k, v := range vars {
		env[k] = v
	}
	cfg, err := config.FromMap(env)
	require.NoError(t, err)
	return cfg
}

func newJar(t *testing.T) http.CookieJar {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return jar
}

func TestHashCmd(t *testing.T) {
	t.Parallel()

	t.Run("argument", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, newRootCmd(), "", "hash", "Secr3t!pass")
		require.NoError(t, err)

		ok, err := password.NewHasher().Verify("Secr3t!pass", strings.TrimSpace(out))
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("stdin", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, newRootCmd(), "from-stdin\n", "hash")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(out, "$argon2id$"))
	})

	t.Run("empty stdin", func(t *testing.T) {
		t.Parallel()

		_, err := execute(t, newRootCmd(), "", "hash")
		require.ErrorIs(t, err, errEmptyPassword)
	})
}

func TestPrintRoutes(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, nil)
	app, err := gatehouse.New(append(kernelOptions(cfg), gatehouse.WithCustomLogger(logger.NewNope()))...)
	require.NoError(t, err)

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, printRoutes(cmd, app))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	require.Regexp(t, `^PATTERN\s+METHODS\s+TARGET\s+KIND\s+CATEGORY$`, lines[0])
	require.Regexp(t, `^/login\s+GET\s+Auth@form\s+controller\s+auth-gated$`, lines[1])
	require.Regexp(t, `^/session\s+\*\s+Session@show\s+controller\s+front$`, lines[3])
}

func TestBuild_NoUserStore(t *testing.T) {
	t.Parallel()

	_, _, err := build(context.Background(), testConfig(t, nil), logger.NewNope())
	require.ErrorIs(t, err, ErrNoUserStore)
}

func TestBuild_SQLiteUsers(t *testing.T) {
	t.Parallel()

	usersFile := filepath.Join(t.TempDir(), "users.db")
	gdb, err := openUsers(usersFile)
	require.NoError(t, err)
	hash, err := password.NewHasher().Hash("Secr3t!pass")
	require.NoError(t, err)
	require.NoError(t, gdb.Create(&credential.User{Username: "alice", Email: "alice@example.com", PasswordHash: hash}).Error)
	require.NoError(t, closeGORM(gdb)(context.Background()))

	cfg := testConfig(t, map[string]string{
		"AUTH_USERS_SQLITE": usersFile,
		"METRICS_ENABLED":   "true",
	})
	app, runOpts, err := build(context.Background(), cfg, logger.NewNope())
	require.NoError(t, err)
	require.NotEmpty(t, runOpts)

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	jar := newJar(t)
	client := &http.Client{Jar: jar, CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	status := func() map[string]any {
		resp, err := client.Get(srv.URL + "/session")
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}
	require.Equal(t, false, status()["authenticated"])

	resp, err := client.Get(srv.URL + "/login")
	require.NoError(t, err)
	var form struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&form))
	resp.Body.Close()
	require.NotEmpty(t, form.Token)

	resp, err = client.PostForm(srv.URL+"/login", url.Values{
		"username": {"alice"},
		"password": {"Secr3t!pass"},
		"_token":   {form.Token},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := status()
	require.Equal(t, true, got["authenticated"])
	require.Equal(t, "alice", got["user"])

	resp, err = client.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBuild_ForwardedAddressNeedsTrustedProxy(t *testing.T) {
	t.Parallel()

	usersFile := filepath.Join(t.TempDir(), "users.db")
	gdb, err := openUsers(usersFile)
	require.NoError(t, err)
	require.NoError(t, closeGORM(gdb)(context.Background()))

	serve := func(trust string) *httptest.Server {
		cfg := testConfig(t, map[string]string{
			"AUTH_USERS_SQLITE": usersFile,
			"AUTH_ALLOW_IPS":    "203.0.113.7",
			"HTTP_TRUST_PROXY":  trust,
		})
		app, _, err := build(context.Background(), cfg, logger.NewNope())
		require.NoError(t, err)
		srv := httptest.NewServer(app)
		t.Cleanup(srv.Close)
		return srv
	}

	get := func(srv *httptest.Server) int {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/session", nil)
		require.NoError(t, err)
		req.Header.Set("X-Real-IP", "203.0.113.7")
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	require.Equal(t, http.StatusForbidden, get(serve("false")))
	require.Equal(t, http.StatusOK, get(serve("true")))
}

func TestUserAddCmd(t *testing.T) {
	usersFile := filepath.Join(t.TempDir(), "users.db")
	t.Setenv("AUTH_USERS_SQLITE", usersFile)
	t.Setenv("DATABASE_URL", "")

	out, err := execute(t, newRootCmd(), "Secr3t!pass\n", "user", "add", "bob", "--email", "bob@example.com")
	require.NoError(t, err)
	require.Equal(t, "created bob\n", out)

	gdb, err := openUsers(usersFile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeGORM(gdb)(context.Background()) })

	rec, err := credential.NewGORM(gdb).GetUser(context.Background(), "bob@example.com")
	require.NoError(t, err)
	require.Equal(t, "bob", rec.Value("username"))

	ok, err := password.NewHasher().Verify("Secr3t!pass", rec.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = execute(t, newRootCmd(), "", "user", "add", "carol", "--email", "carol@example.com", "--password", "x")
	require.NoError(t, err)
	_, err = execute(t, newRootCmd(), "", "user", "add", "dave", "--password", "x")
	require.Error(t, err, "email is required")
}
