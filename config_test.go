package p4utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfig(t *testing.T) {
	t.Run("JSON descriptions parse", func(t *testing.T) {
		path := writeTempConfig(t, "p4app.json", `{
			"switch": "simple_switch_grpc",
			"enable_log": true,
			"topology": {
				"hosts": ["h1", "h2"],
				"switches": {"s1": {"cli_input": "s1-commands.txt"}},
				"links": [["h1", "s1"], ["h2", "s1", "2ms", 10, 2]]
			}
		}`)
		config, err := LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if config.SwitchBinary() != "simple_switch_grpc" {
			t.Fatal("unexpected switch binary", config.SwitchBinary())
		}
		if !config.EnableLog {
			t.Fatal("expected logging enabled")
		}
		if config.Topology.Switches["s1"].CLIInput != "s1-commands.txt" {
			t.Fatal("unexpected cli_input")
		}
	})

	t.Run("YAML and JSON descriptions are equivalent", func(t *testing.T) {
		jsonPath := writeTempConfig(t, "p4app.json", `{
			"topology": {
				"hosts": ["h1"],
				"switches": {"s1": {}},
				"links": [["h1", "s1", 2]]
			}
		}`)
		yamlPath := writeTempConfig(t, "p4app.yml", `
topology:
  hosts: [h1]
  switches:
    s1: {}
  links:
    - [h1, s1, 2]
`)
		fromJSON := Must1(LoadConfig(jsonPath))
		fromYAML := Must1(LoadConfig(yamlPath))

		// the raw tuples decode with codec-specific number types, so
		// compare the normalized links instead
		jsonLinks := Must1(ParseLinks(fromJSON.Topology.Links))
		yamlLinks := Must1(ParseLinks(fromYAML.Topology.Links))
		if diff := cmp.Diff(jsonLinks, yamlLinks); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff(fromJSON.Topology.Hosts, fromYAML.Topology.Hosts); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("a missing topology section names the section", func(t *testing.T) {
		path := writeTempConfig(t, "p4app.json", `{"switch": "simple_switch"}`)
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfiguration) {
			t.Fatal("not the error we expected", err)
		}
		if !strings.Contains(err.Error(), "topology") {
			t.Fatal("error does not name the missing section:", err)
		}
	})

	t.Run("a missing file is a configuration error", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
		if !errors.Is(err, ErrConfiguration) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("malformed JSON is a configuration error", func(t *testing.T) {
		path := writeTempConfig(t, "p4app.json", `{`)
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfiguration) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("the default switch binary applies", func(t *testing.T) {
		config := &AppConfig{}
		if config.SwitchBinary() != DefaultSwitchBinary {
			t.Fatal("unexpected default", config.SwitchBinary())
		}
	})
}

// writeTempConfig writes a topology description into a temporary
// directory and returns its path.
func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
