package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func migrationFile(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func TestLoadMigrations_SortsByVersion(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0002_orders.up.sql":       migrationFile("CREATE TABLE orders (id INT);"),
		"sql/migrations/0002_orders.down.sql":     migrationFile("DROP TABLE IF EXISTS orders;"),
		"sql/migrations/0001_menu_items.up.sql":   migrationFile("CREATE TABLE menu_items (id INT);"),
		"sql/migrations/0001_menu_items.down.sql": migrationFile("DROP TABLE IF EXISTS menu_items;"),
		"sql/migrations/README.md":                migrationFile("ignored"),
	}

	migrations, err := loadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	require.Equal(t, "0001_menu_items", migrations[0].String())
	require.Equal(t, "0002_orders", migrations[1].String())
	require.Equal(t, "CREATE TABLE menu_items (id INT);", migrations[0].Up)
	require.Equal(t, "DROP TABLE IF EXISTS orders;", migrations[1].Down)
}

func TestLoadMigrations_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
	}{
		{
			name: "missing down",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql": migrationFile("CREATE TABLE a (id INT);"),
			},
			wantErr: "both up and down",
		},
		{
			name: "invalid file name",
			fsys: fstest.MapFS{
				"sql/migrations/not_a_migration.sql": migrationFile("SELECT 1;"),
			},
			wantErr: "invalid migration file name",
		},
		{
			name: "empty body",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":   migrationFile("   \n"),
				"sql/migrations/0001_init.down.sql": migrationFile("DROP TABLE IF EXISTS a;"),
			},
			wantErr: "migration file is empty",
		},
		{
			name: "name mismatch",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":    migrationFile("CREATE TABLE a (id INT);"),
				"sql/migrations/0001_other.down.sql": migrationFile("DROP TABLE IF EXISTS a;"),
			},
			wantErr: "name mismatch",
		},
		{
			name:    "no directory",
			fsys:    fstest.MapFS{},
			wantErr: "list migrations",
		},
		{
			name: "only foreign files",
			fsys: fstest.MapFS{
				"sql/migrations/notes.txt": migrationFile("nothing"),
			},
			wantErr: "no migration files found",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := loadMigrations(tc.fsys)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	names, err := MigrationNames()
	require.NoError(t, err)
	require.Equal(t, []string{"0001_menu_items", "0002_orders", "0003_outbox_messages", "0004_idempotency_keys"}, names)
}
