package storage

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/accessible-dispatch/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) SaveDispatch(r *models.DispatchRecord) error {
	_, err := p.db.Exec(`INSERT INTO dispatches(request_id, user_id, driver_id, pickup, dest, score, eta_minutes, emergency, created_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.RequestID, r.UserID, r.DriverID, r.Pickup, r.Dest, r.Score, r.ETA, r.Emergency, r.CreatedAt)
	return err
}

func (p *PostgresStore) UpdateDispatch(r *models.DispatchRecord) error {
	_, err := p.db.Exec(`UPDATE dispatches SET driver_id=$1, score=$2, eta_minutes=$3, created_at=$4 WHERE request_id=$5`,
		r.DriverID, r.Score, r.ETA, time.Now(), r.RequestID)
	return err
}
