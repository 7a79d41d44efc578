/*
Package sqlstore implements the persistence interfaces on database/sql.

PURPOSE:
  One implementation of distribution.Store and generic.DivisionOrderStore
  shared by SQLite and PostgreSQL. The dialect only decides placeholder
  style and how a unique-constraint violation is recognised.

INTERFACES IMPLEMENTED:
  distribution.Store:         Distributions with optimistic locking
  generic.DivisionOrderStore: Division order interests

KEY TABLES:
  distributions:       One row per distribution, unique natural key
  distribution_events: Append-only history, unique (distribution_id, version)
  division_orders:     Decimal interests with effective windows

OPTIMISTIC LOCKING:
  Save issues UPDATE ... WHERE id = ? AND version = ? inside a transaction
  and inserts the events in that same transaction. Zero rows affected means
  another writer won; nothing is written and a VersionConflictError is
  returned. No application lock is held, the database arbitrates.

STORAGE FORMAT:
  Amounts, fractions and volumes are TEXT decimals so both dialects keep
  them exact. Timestamps are UTC RFC 3339 with nanoseconds. Production
  months are "YYYY-MM", which sorts chronologically.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/sqlite: go-sqlite3 dialect
  - store/postgres: pgx dialect
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/distribution"
	"github.com/warp/revenue-engine/generic"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name string

	// NumberedPlaceholders rewrites ? to $1, $2, ...
	NumberedPlaceholders bool

	// IsUniqueViolation recognises a unique-constraint failure.
	IsUniqueViolation func(error) bool
}

// Store implements distribution.Store and generic.DivisionOrderStore.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database and migrates the schema.
func New(db *sql.DB, dialect Dialect) (*Store, error) {
	if dialect.IsUniqueViolation == nil {
		dialect.IsUniqueViolation = func(error) bool { return false }
	}
	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// DB exposes the pool for metrics and health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() string {
	return s.dialect.Name
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS distributions (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			well_id TEXT NOT NULL,
			partner_id TEXT NOT NULL,
			division_order_id TEXT NOT NULL,
			production_month TEXT NOT NULL,
			oil_volume TEXT,
			gas_volume TEXT,
			currency TEXT NOT NULL,
			oil_revenue TEXT,
			gas_revenue TEXT,
			total_revenue TEXT NOT NULL,
			severance_tax TEXT,
			ad_valorem TEXT,
			transportation_costs TEXT,
			processing_costs TEXT,
			other_deductions TEXT,
			net_revenue TEXT NOT NULL,
			check_number TEXT,
			payment_date TEXT,
			payment_method TEXT,
			is_paid BOOLEAN NOT NULL DEFAULT FALSE,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			version INTEGER NOT NULL,
			UNIQUE (well_id, partner_id, division_order_id, production_month)
		)`,

		// Well listings by month (hot path for statements)
		`CREATE INDEX IF NOT EXISTS idx_distributions_well_month
			ON distributions(well_id, production_month, partner_id)`,

		`CREATE TABLE IF NOT EXISTS distribution_events (
			id TEXT PRIMARY KEY,
			distribution_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			version INTEGER NOT NULL,
			actor TEXT,
			reason TEXT,
			occurred_at TEXT NOT NULL,
			details_json TEXT,
			UNIQUE (distribution_id, version)
		)`,

		`CREATE TABLE IF NOT EXISTS division_orders (
			id TEXT PRIMARY KEY,
			well_id TEXT NOT NULL,
			partner_id TEXT NOT NULL,
			decimal_interest TEXT NOT NULL,
			effective_from TEXT NOT NULL,
			effective_to TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_division_orders_well
			ON division_orders(well_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

const distributionColumns = `id, organization_id, well_id, partner_id, division_order_id, production_month,
	oil_volume, gas_volume, currency, oil_revenue, gas_revenue, total_revenue,
	severance_tax, ad_valorem, transportation_costs, processing_costs, other_deductions, net_revenue,
	check_number, payment_date, payment_method, is_paid, status, created_at, updated_at, version`

func (s *Store) Create(ctx context.Context, d distribution.Distribution, events ...distribution.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO distributions (` + distributionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := tx.ExecContext(ctx, s.rebind(query), distributionArgs(d)...); err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return generic.ErrDuplicateDistribution
		}
		return fmt.Errorf("failed to insert distribution: %w", err)
	}
	if err := s.appendEvents(ctx, tx, events); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Load(ctx context.Context, id generic.DistributionID) (distribution.Distribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM distributions WHERE id = ?`
	d, err := scanDistribution(s.db.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return distribution.Distribution{}, &generic.NotFoundError{Kind: "distribution", ID: string(id)}
	}
	return d, err
}

// Save is a compare-and-swap on version. The guard runs in the WHERE
// clause, so concurrent writers across processes are serialised by the
// database.
func (s *Store) Save(ctx context.Context, d distribution.Distribution, expectedVersion int, events ...distribution.Event) error {
	if err := distribution.CheckSave(d, expectedVersion); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE distributions SET
			oil_volume = ?, gas_volume = ?, currency = ?, oil_revenue = ?, gas_revenue = ?, total_revenue = ?,
			severance_tax = ?, ad_valorem = ?, transportation_costs = ?, processing_costs = ?,
			other_deductions = ?, net_revenue = ?, check_number = ?, payment_date = ?, payment_method = ?,
			is_paid = ?, status = ?, updated_at = ?, version = ?
		WHERE id = ? AND version = ?`

	b := d.RevenueBreakdown
	res, err := tx.ExecContext(ctx, s.rebind(query),
		nullDecimal(d.ProductionVolumes.OilVolume),
		nullDecimal(d.ProductionVolumes.GasVolume),
		string(b.TotalRevenue.Currency),
		nullMoney(b.OilRevenue),
		nullMoney(b.GasRevenue),
		b.TotalRevenue.Amount.String(),
		nullMoney(b.SeveranceTax),
		nullMoney(b.AdValorem),
		nullMoney(b.TransportationCosts),
		nullMoney(b.ProcessingCosts),
		nullMoney(b.OtherDeductions),
		b.NetRevenue.Amount.String(),
		nullString(d.PaymentInfo.CheckNumber),
		nullTime(d.PaymentInfo.PaymentDate),
		nullString(d.PaymentInfo.PaymentMethod),
		d.IsPaid,
		string(d.Status),
		formatTime(d.UpdatedAt),
		d.Version,
		string(d.ID),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update distribution: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update distribution: %w", err)
	}
	if n == 0 {
		var actual int
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT version FROM distributions WHERE id = ?`), string(d.ID)).Scan(&actual)
		if errors.Is(err, sql.ErrNoRows) {
			return &generic.NotFoundError{Kind: "distribution", ID: string(d.ID)}
		}
		if err != nil {
			return fmt.Errorf("failed to read version: %w", err)
		}
		return &generic.VersionConflictError{ID: d.ID, Expected: expectedVersion, Actual: actual}
	}

	if err := s.appendEvents(ctx, tx, events); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) FindByKey(ctx context.Context, k distribution.Key) (distribution.Distribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM distributions
		WHERE well_id = ? AND partner_id = ? AND division_order_id = ? AND production_month = ?`
	d, err := scanDistribution(s.db.QueryRowContext(ctx, s.rebind(query),
		string(k.WellID), string(k.PartnerID), string(k.DivisionOrderID), k.ProductionMonth.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return distribution.Distribution{}, &generic.NotFoundError{Kind: "distribution", ID: k.String()}
	}
	return d, err
}

func (s *Store) ListByWell(ctx context.Context, wellID generic.WellID, month generic.ProductionMonth) ([]distribution.Distribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM distributions WHERE well_id = ?`
	args := []any{string(wellID)}
	if !month.IsZero() {
		query += ` AND production_month = ?`
		args = append(args, month.String())
	}
	query += ` ORDER BY production_month, partner_id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query distributions: %w", err)
	}
	defer rows.Close()

	var result []distribution.Distribution
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// =============================================================================
// EVENTS
// =============================================================================

func (s *Store) appendEvents(ctx context.Context, tx *sql.Tx, events []distribution.Event) error {
	query := s.rebind(`INSERT INTO distribution_events
		(id, distribution_id, event_type, version, actor, reason, occurred_at, details_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	for _, e := range events {
		details, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("failed to encode event details: %w", err)
		}
		_, err = tx.ExecContext(ctx, query,
			e.ID,
			string(e.DistributionID),
			string(e.Type),
			e.Version,
			nullString(e.Actor),
			nullString(e.Reason),
			formatTime(e.OccurredAt),
			string(details),
		)
		if err != nil {
			return fmt.Errorf("failed to append event: %w", err)
		}
	}
	return nil
}

func (s *Store) Events(ctx context.Context, id generic.DistributionID) ([]distribution.Event, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM distributions WHERE id = ?`), string(id)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "distribution", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, distribution_id, event_type, version, actor, reason, occurred_at, details_json
		FROM distribution_events WHERE distribution_id = ? ORDER BY version`), string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []distribution.Event
	for rows.Next() {
		var (
			e                      distribution.Event
			distID, typ            string
			actor, reason, details sql.NullString
			occurredAt             string
		)
		if err := rows.Scan(&e.ID, &distID, &typ, &e.Version, &actor, &reason, &occurredAt, &details); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.DistributionID = generic.DistributionID(distID)
		e.Type = distribution.EventType(typ)
		e.Actor = actor.String
		e.Reason = reason.String
		if e.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, err
		}
		if details.Valid && details.String != "" && details.String != "null" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, fmt.Errorf("failed to decode event details: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// =============================================================================
// DIVISION ORDERS
// =============================================================================

func (s *Store) SaveInterest(ctx context.Context, i generic.DivisionOrderInterest) error {
	query := `INSERT INTO division_orders (id, well_id, partner_id, decimal_interest, effective_from, effective_to)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			well_id = excluded.well_id,
			partner_id = excluded.partner_id,
			decimal_interest = excluded.decimal_interest,
			effective_from = excluded.effective_from,
			effective_to = excluded.effective_to`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		string(i.DivisionOrderID),
		string(i.WellID),
		string(i.PartnerID),
		i.DecimalInterest.String(),
		formatTime(i.EffectiveFrom),
		nullTime(i.EffectiveTo),
	)
	if err != nil {
		return fmt.Errorf("failed to save division order: %w", err)
	}
	return nil
}

// ListActiveInterests filters the effective window in Go so the
// comparison is on time.Time rather than on text.
func (s *Store) ListActiveInterests(ctx context.Context, wellID generic.WellID, asOf time.Time) ([]generic.DivisionOrderInterest, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, well_id, partner_id, decimal_interest, effective_from, effective_to
		FROM division_orders WHERE well_id = ? ORDER BY partner_id, id`), string(wellID))
	if err != nil {
		return nil, fmt.Errorf("failed to query division orders: %w", err)
	}
	defer rows.Close()

	var result []generic.DivisionOrderInterest
	for rows.Next() {
		var (
			id, well, partner, interest, from string
			to                                sql.NullString
		)
		if err := rows.Scan(&id, &well, &partner, &interest, &from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan division order: %w", err)
		}
		i := generic.DivisionOrderInterest{
			DivisionOrderID: generic.DivisionOrderID(id),
			WellID:          generic.WellID(well),
			PartnerID:       generic.PartnerID(partner),
		}
		if i.DecimalInterest, err = decimal.NewFromString(interest); err != nil {
			return nil, fmt.Errorf("division order %s: %w", id, err)
		}
		if i.EffectiveFrom, err = parseTime(from); err != nil {
			return nil, err
		}
		if i.EffectiveTo, err = parseNullTime(to); err != nil {
			return nil, err
		}
		if i.ActiveAt(asOf) {
			result = append(result, i)
		}
	}
	return result, rows.Err()
}

func (s *Store) ListWells(ctx context.Context) ([]generic.WellID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT well_id FROM division_orders ORDER BY well_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query wells: %w", err)
	}
	defer rows.Close()

	var wells []generic.WellID
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan well: %w", err)
		}
		wells = append(wells, generic.WellID(w))
	}
	return wells, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{"distribution_events", "distributions", "division_orders"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders for dialects that number them. Queries
// in this package never contain a literal question mark.
func (s *Store) rebind(query string) string {
	if !s.dialect.NumberedPlaceholders {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func distributionArgs(d distribution.Distribution) []any {
	b := d.RevenueBreakdown
	return []any{
		string(d.ID),
		string(d.OrganizationID),
		string(d.WellID),
		string(d.PartnerID),
		string(d.DivisionOrderID),
		d.ProductionMonth.String(),
		nullDecimal(d.ProductionVolumes.OilVolume),
		nullDecimal(d.ProductionVolumes.GasVolume),
		string(b.TotalRevenue.Currency),
		nullMoney(b.OilRevenue),
		nullMoney(b.GasRevenue),
		b.TotalRevenue.Amount.String(),
		nullMoney(b.SeveranceTax),
		nullMoney(b.AdValorem),
		nullMoney(b.TransportationCosts),
		nullMoney(b.ProcessingCosts),
		nullMoney(b.OtherDeductions),
		b.NetRevenue.Amount.String(),
		nullString(d.PaymentInfo.CheckNumber),
		nullTime(d.PaymentInfo.PaymentDate),
		nullString(d.PaymentInfo.PaymentMethod),
		d.IsPaid,
		string(d.Status),
		formatTime(d.CreatedAt),
		formatTime(d.UpdatedAt),
		d.Version,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDistribution(row rowScanner) (distribution.Distribution, error) {
	var (
		d                                       distribution.Distribution
		id, org, well, partner, divOrder, month string
		oilVolume, gasVolume                    sql.NullString
		currency                                string
		oilRevenue, gasRevenue                  sql.NullString
		totalRevenue, netRevenue                string
		severance, adValorem                    sql.NullString
		transportation, processing, other       sql.NullString
		checkNumber, paymentDate, paymentMethod sql.NullString
		status, createdAt, updatedAt            string
	)

	err := row.Scan(
		&id, &org, &well, &partner, &divOrder, &month,
		&oilVolume, &gasVolume, &currency, &oilRevenue, &gasRevenue, &totalRevenue,
		&severance, &adValorem, &transportation, &processing, &other, &netRevenue,
		&checkNumber, &paymentDate, &paymentMethod, &d.IsPaid, &status, &createdAt, &updatedAt, &d.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("failed to scan distribution: %w", err)
	}

	d.ID = generic.DistributionID(id)
	d.OrganizationID = generic.OrganizationID(org)
	d.WellID = generic.WellID(well)
	d.PartnerID = generic.PartnerID(partner)
	d.DivisionOrderID = generic.DivisionOrderID(divOrder)
	d.Status = distribution.Status(status)
	d.PaymentInfo.CheckNumber = checkNumber.String
	d.PaymentInfo.PaymentMethod = paymentMethod.String

	// Decode errors are collected so the scan reads top to bottom.
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	cur := generic.Currency(currency)

	var perr error
	d.ProductionMonth, perr = generic.ParseProductionMonth(month)
	collect(perr)

	d.ProductionVolumes.OilVolume, perr = parseNullDecimal(oilVolume)
	collect(perr)
	d.ProductionVolumes.GasVolume, perr = parseNullDecimal(gasVolume)
	collect(perr)

	b := &d.RevenueBreakdown
	b.TotalRevenue, perr = parseMoney(totalRevenue, cur)
	collect(perr)
	b.NetRevenue, perr = parseMoney(netRevenue, cur)
	collect(perr)
	for _, f := range []struct {
		dst *generic.OptionalMoney
		src sql.NullString
	}{
		{&b.OilRevenue, oilRevenue},
		{&b.GasRevenue, gasRevenue},
		{&b.SeveranceTax, severance},
		{&b.AdValorem, adValorem},
		{&b.TransportationCosts, transportation},
		{&b.ProcessingCosts, processing},
		{&b.OtherDeductions, other},
	} {
		*f.dst, perr = parseOptionalMoney(f.src, cur)
		collect(perr)
	}

	d.PaymentInfo.PaymentDate, perr = parseNullTime(paymentDate)
	collect(perr)
	d.CreatedAt, perr = parseTime(createdAt)
	collect(perr)
	d.UpdatedAt, perr = parseTime(updatedAt)
	collect(perr)

	if len(errs) > 0 {
		return d, fmt.Errorf("distribution %s: %w", id, errors.Join(errs...))
	}
	return d, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDecimal(nd decimal.NullDecimal) sql.NullString {
	if !nd.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: nd.Decimal.String(), Valid: true}
}

func nullMoney(o generic.OptionalMoney) sql.NullString {
	m, ok := o.Get()
	if !ok {
		return sql.NullString{}
	}
	return sql.NullString{String: m.Amount.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseNullDecimal(ns sql.NullString) (decimal.NullDecimal, error) {
	if !ns.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func parseMoney(s string, cur generic.Currency) (generic.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return generic.Money{}, err
	}
	return generic.NewMoneyIn(d, cur), nil
}

func parseOptionalMoney(ns sql.NullString, cur generic.Currency) (generic.OptionalMoney, error) {
	if !ns.Valid {
		return generic.None(), nil
	}
	m, err := parseMoney(ns.String, cur)
	if err != nil {
		return generic.None(), err
	}
	return generic.Some(m), nil
}

// Compile-time checks
var (
	_ distribution.Store         = (*Store)(nil)
	_ generic.DivisionOrderStore = (*Store)(nil)
)
