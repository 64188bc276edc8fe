package contracts

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/sarbdeol/bi-market-intelligence/schemas"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const resourcePrefix = "mem://schemas/"

var compiledSchemas = make(map[string]*jsonschema.Schema)

func init() {
	if err := compileAll(schemas.SchemasFS); err != nil {
		panic(fmt.Sprintf("contracts: %v", err))
	}
}

// compileAll добавляет все схемы как ресурсы, затем компилирует и регистрирует их по ключу
func compileAll(fsys fs.FS) error {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	var paths []string
	err := fs.WalkDir(fsys, "events", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		file, err := fsys.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		if err := compiler.AddResource(resourcePrefix+path, file); err != nil {
			return fmt.Errorf("failed to add schema resource %s: %w", path, err)
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error walking schema resources: %w", err)
	}

	for _, path := range paths {
		schema, err := compiler.Compile(resourcePrefix + path)
		if err != nil {
			return fmt.Errorf("could not compile schema %s: %w", path, err)
		}
		key := GenerateKeyFromPath(path)
		if key == "" {
			return fmt.Errorf("unexpected schema path layout: %s", path)
		}
		compiledSchemas[key] = schema
	}
	return nil
}

// GenerateKeyFromPath: "events/scraped-listings-batch/v1.json" -> "ScrapedListingsBatchEvent/1.0.0"
func GenerateKeyFromPath(path string) string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(path, "events/"), ".json")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || !strings.HasPrefix(parts[1], "v") {
		return ""
	}

	caser := cases.Title(language.English)
	var name strings.Builder
	for _, p := range strings.Split(parts[0], "-") {
		name.WriteString(caser.String(p))
	}
	name.WriteString("Event")

	return fmt.Sprintf("%s/%s.0.0", name.String(), strings.TrimPrefix(parts[1], "v"))
}

// ValidateEvent проверяет тело сообщения по схеме (eventType, eventVersion)
func ValidateEvent(eventType, eventVersion string, body []byte) error {
	key := fmt.Sprintf("%s/%s", eventType, eventVersion)
	schema, ok := compiledSchemas[key]
	if !ok {
		return fmt.Errorf("schema for event '%s' version '%s' not found", eventType, eventVersion)
	}

	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("message body is not a valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}
