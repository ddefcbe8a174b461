// Package internal implements the gatehouse application kernel.
//
// Import "github.com/dmitrymomot/gatehouse" instead, which re-exports the public API.
//
// # Request flow
//
// App sends every request that is not an operational endpoint (health,
// metrics) to the Dispatcher:
//
//  1. A per-request Context is built. It carries a clone of the application
//     hook registry, a gate bound to that clone and a lazy SessionHandle.
//  2. The Dispatcher matches method and path against the route table. No
//     match fires "dispatch.not_found" and renders 404; no controller is built.
//  3. The matched target's category decides access:
//
//	front, callable, unclassified  invoke
//	backend                        invoke if authenticated, else redirect to the login URL
//	auth-gated                     invoke if anonymous, else redirect to the admin URL
//	api                            invoke if Basic credentials match, else 401
//	module                         invoke
//
//  4. The "dispatch.params" filter may rewrite the bound params, then the
//     target runs with args shaped by the number of params.
//
// # Targets
//
// Route entries name targets as strings. Targets resolves them:
//
//	"health"                  a callable registered with Func
//	"Admin@edit"              method "edit" of controller "Admin"
//	"blog::Posts@show"        method "show" of controller "Posts" in module "blog"
//
// All targets resolve in New; a route naming an unknown target fails the build.
//
// # Sessions
//
// The SessionHandle loads the stored session on first access and creates one
// on the first write. Changes are saved and the cookie is written right
// before the response header is sent. Registering a session rotates its token.
package internal
