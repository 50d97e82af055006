package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"financas/internal/core"

	_ "modernc.org/sqlite"
)

const txColumns = `id, user_id, descricao, valor_cents, tipo, data, status,
	group_id, observacao, parcela_id, parcela_atual, total_parcelas`

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers and keeps batches atomic
	// without SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Apply(ctx context.Context, userID string, muts []Mutation) (err error) {
	for _, m := range muts {
		if err := m.Validate(); err != nil {
			return err
		}
		if err := checkOwner(userID, m); err != nil {
			return err
		}
	}
	if len(muts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, m := range muts {
		if err = applySQL(ctx, tx, userID, m); err != nil {
			return fmt.Errorf("%s %s/%s: %w", m.Op, m.Collection, m.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	slog.DebugContext(ctx, "Batch committed to SQLite", "user_id", userID, "mutations", len(muts))
	return nil
}

func applySQL(ctx context.Context, tx *sql.Tx, userID string, m Mutation) error {
	switch m.Op {
	case OpCreate:
		return insertDoc(ctx, tx, userID, m.Doc)
	case OpUpdate:
		current, err := getTransaction(ctx, tx, userID, m.ID)
		if err != nil {
			return err
		}
		return updateTransaction(ctx, tx, m.Patch.Apply(current))
	case OpDelete:
		_, err := tx.ExecContext(ctx,
			`DELETE FROM `+tableFor(m.Collection)+` WHERE user_id = ? AND id = ?`, userID, m.ID)
		return err
	}
	return ErrInvalidMutation
}

func tableFor(c core.Collection) string {
	switch c {
	case core.Groups:
		return "transaction_groups"
	case core.Descriptions:
		return "predefined_descriptions"
	default:
		return "transactions"
	}
}

func insertDoc(ctx context.Context, tx *sql.Tx, userID string, doc core.Document) error {
	switch d := doc.(type) {
	case core.Transaction:
		var parcelaID sql.NullString
		var atual, total sql.NullInt64
		if d.Installment != nil {
			parcelaID = sql.NullString{String: d.Installment.ParcelaID, Valid: true}
			atual = sql.NullInt64{Int64: int64(d.Installment.Atual), Valid: true}
			total = sql.NullInt64{Int64: int64(d.Installment.Total), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO transactions (`+txColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, userID, d.Descricao, d.Valor.Cents, string(d.Tipo), formatDate(d.Data), string(d.Status),
			nullString(d.GroupID), nullString(d.Observacao), parcelaID, atual, total)
		return err
	case core.Group:
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_groups (id, user_id, name, tipo) VALUES (?, ?, ?, ?)`,
			d.ID, userID, d.Name, string(d.Tipo))
		return err
	case core.PredefinedDescription:
		_, err := tx.ExecContext(ctx,
			`INSERT INTO predefined_descriptions (id, user_id, name, tipo) VALUES (?, ?, ?, ?)`,
			d.ID, userID, d.Name, string(d.Tipo))
		return err
	}
	return fmt.Errorf("%w: unsupported document %T", ErrInvalidMutation, doc)
}

// updateTransaction rewrites the mutable columns. tipo and the installment
// columns are never touched.
func updateTransaction(ctx context.Context, tx *sql.Tx, t core.Transaction) error {
	_, err := tx.ExecContext(ctx, `UPDATE transactions
		SET descricao = ?, valor_cents = ?, data = ?, status = ?, group_id = ?, observacao = ?
		WHERE user_id = ? AND id = ?`,
		t.Descricao, t.Valor.Cents, formatDate(t.Data), string(t.Status),
		nullString(t.GroupID), nullString(t.Observacao), t.UserID, t.ID)
	return err
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getTransaction(ctx context.Context, q rowQueryer, userID, id string) (core.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, err
}

func scanTransaction(sc scanner) (core.Transaction, error) {
	var (
		t                          core.Transaction
		tipo, status               string
		data, group, obs           sql.NullString
		parcelaID                  sql.NullString
		parcelaAtual, parcelaTotal sql.NullInt64
	)
	err := sc.Scan(&t.ID, &t.UserID, &t.Descricao, &t.Valor.Cents, &tipo, &data, &status,
		&group, &obs, &parcelaID, &parcelaAtual, &parcelaTotal)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Tipo = core.Kind(tipo)
	t.Status = core.Status(status)
	t.Data = parseDate(data)
	t.GroupID = group.String
	t.Observacao = obs.String
	if parcelaID.Valid {
		t.Installment = &core.Installment{
			ParcelaID: parcelaID.String,
			Atual:     int(parcelaAtual.Int64),
			Total:     int(parcelaTotal.Int64),
		}
	}
	return t, nil
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	return getTransaction(ctx, s.db, userID, id)
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.queryTransactions(ctx, `SELECT `+txColumns+` FROM transactions WHERE user_id = ? ORDER BY seq`, userID)
}

func (s *SQLiteStore) FindInstallments(ctx context.Context, userID, parcelaID string) ([]core.Transaction, error) {
	return s.queryTransactions(ctx, `SELECT `+txColumns+` FROM transactions
		WHERE user_id = ? AND parcela_id = ? ORDER BY parcela_atual, seq`, userID, parcelaID)
}

func (s *SQLiteStore) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListGroups(ctx context.Context, userID string) ([]core.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, tipo FROM transaction_groups WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var out []core.Group
	for rows.Next() {
		var g core.Group
		var tipo string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &tipo); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.Tipo = core.Kind(tipo)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListDescriptions(ctx context.Context, userID string) ([]core.PredefinedDescription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, tipo FROM predefined_descriptions WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("query descriptions: %w", err)
	}
	defer rows.Close()

	var out []core.PredefinedDescription
	for rows.Next() {
		var d core.PredefinedDescription
		var tipo string
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &tipo); err != nil {
			return nil, fmt.Errorf("scan description: %w", err)
		}
		d.Tipo = core.Kind(tipo)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u UserRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	return s.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email)
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (UserRecord, error) {
	return s.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg string) (UserRecord, error) {
	var u UserRecord
	var created string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRecord{}, ErrUserNotFound
	}
	if err != nil {
		return UserRecord{}, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return u, nil
}

func formatDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}

// parseDate tolerates legacy rows with missing or malformed dates by
// returning the zero time.
func parseDate(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
