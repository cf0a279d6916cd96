package main

import (
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"
)

const moduleFile = "quadc.yaml"

type optimizeSettings struct {
	Fold bool `yaml:"fold"`
	CSE  bool `yaml:"cse"`
}

// quadcModule is the project file written by init and read by build.
type quadcModule struct {
	Package  string           `yaml:"package"`
	Emit     []string         `yaml:"emit,omitempty"`
	Optimize optimizeSettings `yaml:"optimize"`
	LogLevel string           `yaml:"loglevel,omitempty"`
}

func defaultModule(name string) quadcModule {
	return quadcModule{
		Package:  name,
		Emit:     []string{"asm"},
		Optimize: optimizeSettings{Fold: true, CSE: true},
		LogLevel: "NOTICE",
	}
}

// readModule loads path over the defaults. A missing file is not an error.
func readModule(path string) (quadcModule, error) {
	mod := defaultModule("")

	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return mod, nil
	}
	if err != nil {
		return mod, err
	}

	err = yaml.Unmarshal(data, &mod)
	return mod, err
}

func writeModule(path string, mod quadcModule) error {
	out, err := yaml.Marshal(mod)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, out, 0644)
}
