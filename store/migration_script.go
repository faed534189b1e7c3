package store

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/chitoku-k/hoarder-sub005/internal/version"
)

// migrationNameSeparator splits the patch number from the description, as in "00__media_tags_tag_id_idx.sql".
const migrationNameSeparator = "__"

// migrationScript is an incremental migration and the schema version it produces.
type migrationScript struct {
	path    string
	version string
}

// parseMigrationScript derives the schema version of migration/<driver>/<minor>/NN__description.sql,
// which is <minor>.<NN+1>.
func parseMigrationScript(filePath string) (migrationScript, error) {
	minor := path.Base(path.Dir(filePath))
	if version.GetMinorVersion(minor+".0") != minor || !version.IsValid(minor+".0") {
		return migrationScript{}, errors.Errorf("migration %s: directory must be a minor version", filePath)
	}

	rawPatch, _, ok := strings.Cut(path.Base(filePath), migrationNameSeparator)
	if !ok {
		return migrationScript{}, errors.Errorf("migration %s: name must be NN%sdescription.sql", filePath, migrationNameSeparator)
	}
	patch, err := strconv.Atoi(rawPatch)
	if err != nil || patch < 0 {
		return migrationScript{}, errors.Errorf("migration %s: name must start with a patch number", filePath)
	}
	return migrationScript{path: filePath, version: fmt.Sprintf("%s.%d", minor, patch+1)}, nil
}

// listMigrationScripts returns the incremental migrations of driver in schema version order.
func listMigrationScripts(driver string) ([]migrationScript, error) {
	paths, err := fs.Glob(migrationFS, path.Join("migration", driver, "*", "*.sql"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read migration files")
	}

	scripts := make([]migrationScript, 0, len(paths))
	for _, filePath := range paths {
		script, err := parseMigrationScript(filePath)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, script)
	}
	slices.SortFunc(scripts, func(a, b migrationScript) int {
		return version.Compare(a.version, b.version)
	})
	return scripts, nil
}

// pendingMigrationScripts returns the scripts newer than recorded and not newer than target.
func pendingMigrationScripts(scripts []migrationScript, recorded, target string) []migrationScript {
	var pending []migrationScript
	for _, script := range scripts {
		if version.IsVersionGreaterThan(script.version, recorded) && version.IsVersionGreaterOrEqualThan(target, script.version) {
			pending = append(pending, script)
		}
	}
	return pending
}

// splitStatements splits a script into statements on semicolons outside string
// literals. Line comments are dropped. Schema and seed scripts use no other
// quoting, so dollar quotes and block comments are not recognized.
func splitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
		inString   bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(script); i++ {
		ch := script[i]
		switch {
		case inString:
			// A doubled quote closes and reopens the literal.
			inString = ch != '\''
			current.WriteByte(ch)
		case ch == '\'':
			inString = true
			current.WriteByte(ch)
		case ch == '-' && i+1 < len(script) && script[i+1] == '-':
			for i+1 < len(script) && script[i+1] != '\n' {
				i++
			}
		case ch == ';':
			flush()
		default:
			current.WriteByte(ch)
		}
	}
	flush()
	return statements
}
