// Package module defines the contract installed modules satisfy and discovers
// them at startup.
//
// A module registers a factory from its package init function:
//
//	func init() {
//		module.Register("blog", func() module.Module { return &Blog{} })
//	}
//
// Discover walks a modules directory; every subdirectory is an installed
// module. Installed modules with a registered factory are instantiated and
// their route fragments collected. Directories without a factory are logged
// and skipped. The factory runs exactly once per discovery, with no
// arguments, so modules can perform their own set-up there.
package module
