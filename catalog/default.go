package catalog

import (
	"bytes"
	_ "embed"
	"sync"
)

//go:embed registers.toml
var defaultResource []byte

// Default returns the catalog built from the register map bundled with
// this module. The resource is parsed once; every caller shares the same
// read-only handle. A malformed bundled resource is a build defect, so
// Default panics rather than returning an error.
var Default = sync.OnceValue(func() *Catalog {
	c, err := Load(bytes.NewReader(defaultResource))
	if err != nil {
		panic("catalog: bundled register map is malformed: " + err.Error())
	}
	return c
})
