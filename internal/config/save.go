package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SaveFlag sets a single feature flag in the config file.
// Other flags and sections keep their comments and formatting.
func SaveFlag(configPath, name string, enabled bool) error {
	doc, err := readDocument(configPath)
	if err != nil {
		return err
	}

	root := rootMapping(doc)
	flagsNode := lookup(root, "flags")
	if flagsNode == nil || flagsNode.Kind != yaml.MappingNode {
		flagsNode = &yaml.Node{Kind: yaml.MappingNode}
		setKey(root, "flags", flagsNode)
	}
	setKey(flagsNode, name, &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!bool",
		Value: strconv.FormatBool(enabled),
	})

	return writeDocument(configPath, doc)
}

// SavePool replaces the pool section of the config file.
// Other sections keep their comments and formatting.
func SavePool(configPath string, pool PoolConfig) error {
	if err := ValidatePool(pool); err != nil {
		return err
	}

	doc, err := readDocument(configPath)
	if err != nil {
		return err
	}

	poolNode := buildPoolNode(pool)
	setKey(rootMapping(doc), "pool", poolNode)

	return writeDocument(configPath, doc)
}

// buildPoolNode creates a yaml.Node for the pool section. Zero limits are
// omitted so the defaults keep applying.
func buildPoolNode(pool PoolConfig) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key, value, tag string) {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value},
		)
	}

	if pool.MaxWorkers > 0 {
		add("max_workers", strconv.Itoa(pool.MaxWorkers), "!!int")
	}
	if pool.AutoTerminate > 0 {
		add("auto_terminate", pool.AutoTerminate.String(), "!!str")
	}
	if pool.SweepInterval > 0 {
		add("sweep_interval", pool.SweepInterval.String(), "!!str")
	}
	if pool.Timeout > 0 {
		add("timeout", pool.Timeout.String(), "!!str")
	}
	if pool.MaxQueue > 0 {
		add("max_queue", strconv.Itoa(pool.MaxQueue), "!!int")
	}
	return node
}

// readDocument parses the config file into a yaml.Node document. A missing
// or empty file yields an empty document with a root mapping.
func readDocument(configPath string) (*yaml.Node, error) {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parsing config: top level is not a mapping")
	}
	return &doc, nil
}

func rootMapping(doc *yaml.Node) *yaml.Node {
	return doc.Content[0]
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i < len(mapping.Content)-1; i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// setKey replaces the value under key, or appends the pair.
func setKey(mapping *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i < len(mapping.Content)-1; i += 2 {
		if mapping.Content[i].Value == key {
			// Keep the comment that trailed the old value.
			if value.LineComment == "" {
				value.LineComment = mapping.Content[i+1].LineComment
			}
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		value,
	)
}

// writeDocument encodes doc and writes it atomically (temp file, then rename).
func writeDocument(configPath string, doc *yaml.Node) error {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".difflens.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
