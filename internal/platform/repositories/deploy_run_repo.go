package repositories

import (
	"database/sql"

	"github.com/google/uuid"

	"deployd/internal/platform/models"
)

type DeployRunRepository struct {
	db *sql.DB
}

func NewDeployRunRepository(db *sql.DB) *DeployRunRepository {
	return &DeployRunRepository{db: db}
}

func (r *DeployRunRepository) Create(run *models.DeployRun) error {
	if run.ID == "" {
		run.ID = "dep_" + uuid.New().String()
	}

	query := `
		INSERT INTO deploy_runs (id, app, success, error, remote_addr, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, run.ID, run.App, run.Success, run.Error, run.RemoteAddr, run.StartedAt, run.DurationMs)
	return err
}

func (r *DeployRunRepository) ListRecent(limit int) ([]*models.DeployRun, error) {
	query := `
		SELECT id, app, success, error, remote_addr, started_at, duration_ms
		FROM deploy_runs ORDER BY started_at DESC LIMIT ?
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (r *DeployRunRepository) ListByApp(app string, limit int) ([]*models.DeployRun, error) {
	query := `
		SELECT id, app, success, error, remote_addr, started_at, duration_ms
		FROM deploy_runs WHERE app = ? ORDER BY started_at DESC LIMIT ?
	`
	rows, err := r.db.Query(query, app, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// DeleteOlderThan prunes runs that started before the cutoff (unix
// seconds) and reports how many were removed.
func (r *DeployRunRepository) DeleteOlderThan(cutoff int64) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM deploy_runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRuns(rows *sql.Rows) ([]*models.DeployRun, error) {
	var runs []*models.DeployRun
	for rows.Next() {
		var run models.DeployRun
		var errMsg, remoteAddr sql.NullString

		if err := rows.Scan(&run.ID, &run.App, &run.Success, &errMsg, &remoteAddr, &run.StartedAt, &run.DurationMs); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}
		if remoteAddr.Valid {
			run.RemoteAddr = remoteAddr.String
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
