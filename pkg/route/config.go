package route

import (
	"errors"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// file is the on-disk layout of a route config.
//
//	routes:
//	  - pattern: /user/{id}
//	    target: Users@show
//	    match:
//	      id: i
//	  - pattern: /login
//	    target: Auth@login
//	    methods: [GET, POST]
type file struct {
	Routes []Entry `yaml:"routes"`
}

// ParseYAML decodes route entries from YAML.
func ParseYAML(data []byte) ([]Entry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Join(ErrLoadConfig, err)
	}
	for _, e := range f.Routes {
		if e.Pattern == "" || e.Target == "" {
			return nil, errors.Join(ErrLoadConfig, ErrInvalidEntry)
		}
	}
	return f.Routes, nil
}

// LoadYAML reads and decodes a route config file from fsys.
func LoadYAML(fsys fs.FS, name string) ([]Entry, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Join(ErrLoadConfig, err)
	}
	return ParseYAML(data)
}
