package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// RunSummary is one catalog row.
type RunSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	Points        int       `json:"points"`
	Dt            float64   `json:"dt"`
	Tf            float64   `json:"tf"`
	FinalPosition float64   `json:"final_position"`
	FinalVelocity float64   `json:"final_velocity"`
}

type catalogRow struct {
	ID            string  `db:"id"`
	Name          string  `db:"name"`
	CreatedAt     int64   `db:"created_at"`
	Points        int     `db:"points"`
	Dt            float64 `db:"dt"`
	Tf            float64 `db:"tf"`
	FinalPosition float64 `db:"final_position"`
	FinalVelocity float64 `db:"final_velocity"`
}

func (r catalogRow) summary() RunSummary {
	return RunSummary{
		ID:            r.ID,
		Name:          r.Name,
		CreatedAt:     time.Unix(0, r.CreatedAt),
		Points:        r.Points,
		Dt:            r.Dt,
		Tf:            r.Tf,
		FinalPosition: r.FinalPosition,
		FinalVelocity: r.FinalVelocity,
	}
}

type catalog struct {
	conn *sqlx.DB
}

func openCatalog(path string) (*catalog, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	c := &catalog{conn: conn}
	if err := c.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	slog.Debug("catalog ready", "path", path)

	return c, nil
}

func (c *catalog) close() error {
	return c.conn.Close()
}

func (c *catalog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		points INTEGER NOT NULL,
		dt REAL NOT NULL,
		tf REAL NOT NULL,
		final_position REAL,
		final_velocity REAL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := c.conn.Exec(schema)
	return err
}

func (c *catalog) insert(r catalogRow) error {
	_, err := c.conn.NamedExec(`INSERT INTO runs
		(id, name, created_at, points, dt, tf, final_position, final_velocity)
		VALUES (:id, :name, :created_at, :points, :dt, :tf, :final_position, :final_velocity)`, r)
	return err
}

func (c *catalog) list() ([]RunSummary, error) {
	var rows []catalogRow
	if err := c.conn.Select(&rows,
		`SELECT id, name, created_at, points, dt, tf,
			COALESCE(final_position, 0) AS final_position,
			COALESCE(final_velocity, 0) AS final_velocity
		FROM runs ORDER BY created_at DESC, rowid DESC`); err != nil {
		return nil, err
	}

	out := make([]RunSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.summary())
	}
	return out, nil
}

func (c *catalog) remove(id string) error {
	_, err := c.conn.Exec("DELETE FROM runs WHERE id = ?", id)
	return err
}
