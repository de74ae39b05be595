package main

import "github.com/havenworks/pidl"

// defaultFactories registers the one action type this demonstration CLI
// ships: "log", which writes its own name through the pipeline's context
// logger. Concrete action implementations (filesystem, HTTP,
// database...) are out of scope for the library itself; embedding
// applications register their own factories the same way.
func defaultFactories() map[string]pidl.ActionFactory {
	return map[string]pidl.ActionFactory{
		"log": func(name string) (pidl.Action, error) {
			return pidl.NewFuncAction(name, func(ctx *pidl.Context) error {
				ctx.Logger().Info("action ran", "action", name)
				return nil
			}), nil
		},
	}
}
