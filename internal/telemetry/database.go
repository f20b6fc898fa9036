package telemetry

import (
	"database/sql"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	// database/sql に "pgx" を登録
	_ "github.com/jackc/pgx/v5/stdlib"
)

// OpenDB はクエリごとにspanを作る *sql.DB を返す
func OpenDB(dsn string) (*sql.DB, error) {
	return otelsql.Open("pgx", dsn,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
}
