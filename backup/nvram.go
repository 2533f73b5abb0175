package backup

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document keys of the two NVRAM namespaces.
const (
	KeyNetwork = "nwk"
	KeyOsal    = "osal"
)

// Entry is one NV item of a backup.
type Entry struct {
	// Name is the catalog name of the item
	Name string

	// Value is the hex encoded item value as stored in the document
	Value string

	// Line is the document line of the entry, for error messages
	Line int
}

// Bytes decodes the hex value.
func (e Entry) Bytes() ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(e.Value))
	if err != nil {
		return nil, fmt.Errorf("invalid hex value for %s: %w", e.Name, err)
	}
	return b, nil
}

// NVRAM is a parsed NVRAM backup.
type NVRAM struct {
	// Network holds the "nwk" entries in document order
	Network []Entry

	// Osal holds the "osal" entries in document order
	Osal []Entry
}

// Len returns the number of entries in both namespaces.
func (n *NVRAM) Len() int {
	return len(n.Network) + len(n.Osal)
}

// LoadNVRAM reads and parses an NVRAM backup file.
func LoadNVRAM(path string) (*NVRAM, error) {
	data, err := os.ReadFile(path) // #nosec G304 - backup path from caller
	if err != nil {
		return nil, fmt.Errorf("failed to read NVRAM backup: %w", err)
	}

	nv, err := ParseNVRAM(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return nv, nil
}

// ParseNVRAM parses an NVRAM backup document. Both namespaces must be
// present and every value must be a scalar; hex decoding is left to the
// caller so that one bad value does not reject the whole document.
func ParseNVRAM(data []byte) (*NVRAM, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse NVRAM backup: %w", err)
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("NVRAM backup is empty")
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: NVRAM backup must be a mapping", mapping.Line)
	}

	nv := &NVRAM{}
	var haveNetwork, haveOsal bool

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]

		switch key.Value {
		case KeyNetwork:
			entries, err := parseNamespace(key.Value, value)
			if err != nil {
				return nil, err
			}
			nv.Network, haveNetwork = entries, true
		case KeyOsal:
			entries, err := parseNamespace(key.Value, value)
			if err != nil {
				return nil, err
			}
			nv.Osal, haveOsal = entries, true
		}
	}

	if !haveNetwork {
		return nil, fmt.Errorf("NVRAM backup has no %q section", KeyNetwork)
	}
	if !haveOsal {
		return nil, fmt.Errorf("NVRAM backup has no %q section", KeyOsal)
	}

	return nv, nil
}

func parseNamespace(namespace string, node *yaml.Node) ([]Entry, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: %q must be a mapping of item name to hex value", node.Line, namespace)
	}

	entries := make([]Entry, 0, len(node.Content)/2)
	seen := make(map[string]int, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		if prev, dup := seen[key.Value]; dup {
			return nil, fmt.Errorf("line %d: duplicate %s item %q (first defined on line %d)",
				key.Line, namespace, key.Value, prev)
		}
		seen[key.Value] = key.Line

		if value.Kind != yaml.ScalarNode || value.Tag == "!!null" {
			return nil, fmt.Errorf("line %d: %s item %q must have a hex string value",
				value.Line, namespace, key.Value)
		}

		entries = append(entries, Entry{
			Name:  key.Value,
			Value: value.Value,
			Line:  key.Line,
		})
	}

	return entries, nil
}
