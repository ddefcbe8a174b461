// Package route provides the ordered route table used by the dispatcher.
//
// A table is built from [Entry] values: the framework's own routes, usually
// loaded with [LoadYAML], merged with the route fragments contributed by
// installed modules. Matching walks the entries in order and the first entry
// whose pattern matches wins; later entries are not consulted.
//
//	core, err := route.LoadYAML(os.DirFS("config"), "routes.yaml")
//	if err != nil {
//	    return err
//	}
//	table, err := route.NewTable(route.Merge(core, blog.Routes())...)
//	if err != nil {
//	    return err
//	}
//
//	m, ok := table.Match(http.MethodGet, "/user/7/edit")
//	// m.Target == "Users@edit"
//	// m.Params.Keys() == []string{"id", "action"}
//
// Patterns are compiled with chi's routing tree, so any chi pattern is valid,
// including inline regular expressions such as {id:[0-9]+}.
package route
