// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[history.Source]()
//	reg.Register("sqlite", func(conf map[string]any) (history.Source, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return sqlite.Open(c.Path)
//	})
//	src, err := reg.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": "counts.db"}})
package factory
