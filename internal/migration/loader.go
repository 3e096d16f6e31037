package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aqasim81/schema-migrator/internal/schema"
)

// filenamePattern matches migration files:
//
//	V{version}_{timestamp}_{description}.up.sql
//	V{version}_{timestamp}_{description}.down.sql
//	V{version}_{timestamp}_{description}.yaml (or .yml)
var filenamePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once, used by LoadFromDir
	`^(V\d+_\d+_.+?)\.(up\.sql|down\.sql|yaml|yml)$`,
)

// LoadOption configures LoadFromDir.
type LoadOption func(*loader)

// WithSQLValidator rejects SQL files for which validate returns an error.
func WithSQLValidator(validate func(sql string) error) LoadOption {
	return func(l *loader) {
		l.validateSQL = validate
	}
}

type loader struct {
	dir         string
	validateSQL func(string) error
}

// LoadFromDir scans a directory for migration files and returns them as
// unsorted Definitions. Files that do not match the naming pattern are
// skipped, as are down.sql files without an up.sql partner.
func LoadFromDir(dir string, opts ...LoadOption) ([]*Definition, error) {
	l := &loader{dir: dir}
	for _, opt := range opts {
		opt(l)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	grouped, order := scanEntries(entries)

	defs := make([]*Definition, 0, len(order))

	for _, key := range order {
		mf := grouped[key]

		def, ok, err := l.build(mf)
		if err != nil {
			return nil, err
		}

		if ok {
			defs = append(defs, def)
		}
	}

	return defs, nil
}

// migrationFile pairs the files sharing one migration name.
type migrationFile struct {
	name     string
	upFile   string
	downFile string
	yamlFile string
}

func scanEntries(entries []os.DirEntry) (map[string]*migrationFile, []string) {
	grouped := make(map[string]*migrationFile)

	var order []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := filenamePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}

		name, suffix := matches[1], matches[2]

		mf, ok := grouped[name]
		if !ok {
			mf = &migrationFile{name: name}
			grouped[name] = mf
			order = append(order, name)
		}

		switch suffix {
		case "up.sql":
			mf.upFile = entry.Name()
		case "down.sql":
			mf.downFile = entry.Name()
		default:
			mf.yamlFile = entry.Name()
		}
	}

	return grouped, order
}

func (l *loader) build(mf *migrationFile) (*Definition, bool, error) {
	switch {
	case mf.yamlFile != "" && (mf.upFile != "" || mf.downFile != ""):
		return nil, false, fmt.Errorf("%w: %s has both YAML and SQL files", ErrInvalidFile, mf.name)
	case mf.yamlFile != "":
		def, err := l.readYAML(mf)
		return def, err == nil, err
	case mf.upFile != "":
		def, err := l.readSQL(mf)
		return def, err == nil, err
	default:
		return nil, false, nil
	}
}

func (l *loader) readSQL(mf *migrationFile) (*Definition, error) {
	upPath := filepath.Join(l.dir, mf.upFile)

	upSQL, err := l.readStatement(upPath)
	if err != nil {
		return nil, err
	}

	up := execBuild(upSQL)

	var down BuildFunc

	if mf.downFile != "" {
		downSQL, err := l.readStatement(filepath.Join(l.dir, mf.downFile))
		if err != nil {
			return nil, err
		}

		down = execBuild(downSQL)
	}

	def, err := FromName(mf.name, up, down)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", upPath, err)
	}

	def.source = upPath

	return def, nil
}

func (l *loader) readStatement(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading migration file %s: %w", path, err)
	}

	sql := strings.TrimSpace(string(data))
	if sql == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrInvalidFile, path)
	}

	if l.validateSQL != nil {
		if err := l.validateSQL(sql); err != nil {
			return "", fmt.Errorf("validating migration file %s: %w", path, err)
		}
	}

	return sql, nil
}

func execBuild(sql string) BuildFunc {
	return func(p *schema.Plan) {
		p.Exec(sql)
	}
}

func (l *loader) readYAML(mf *migrationFile) (*Definition, error) {
	path := filepath.Join(l.dir, mf.yamlFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading migration file %s: %w", path, err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFile, path, err)
	}

	if l.validateSQL != nil {
		for _, sql := range doc.rawSQL() {
			if err := l.validateSQL(sql); err != nil {
				return nil, fmt.Errorf("validating migration file %s: %w", path, err)
			}
		}
	}

	var down BuildFunc
	if len(doc.Down) > 0 {
		down = doc.Down.apply
	}

	def, err := FromName(mf.name, doc.Up.apply, down)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	if doc.Description != "" {
		def.description = doc.Description
	}

	def.source = path

	return def, nil
}
