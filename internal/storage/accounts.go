package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/shopspring/decimal"

	"github.com/dshills/bookstore-mcp/pkg/types"
)

var clientColumns = []interface{}{"id", "email", "password_hash", "name", "balance", "blocked"}

var employeeColumns = []interface{}{"id", "email", "password_hash", "name", "birth_date", "phone"}

var clientSortColumns = map[string]string{
	"email":   "email",
	"name":    "name",
	"balance": "balance",
	"status":  "blocked",
}

var employeeSortColumns = map[string]string{
	"email":      "email",
	"name":       "name",
	"birth_date": "birth_date",
}

type clientRow struct {
	ID           int64           `db:"id"`
	Email        string          `db:"email"`
	PasswordHash string          `db:"password_hash"`
	Name         string          `db:"name"`
	Balance      decimal.Decimal `db:"balance"`
	Blocked      bool            `db:"blocked"`
}

func (r *clientRow) toClient() *types.Client {
	return &types.Client{
		Account: types.Account{ID: r.ID, Email: r.Email, PasswordHash: r.PasswordHash, Name: r.Name},
		Balance: r.Balance,
		Blocked: r.Blocked,
	}
}

type employeeRow struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	BirthDate    time.Time `db:"birth_date"`
	Phone        string    `db:"phone"`
}

func (r *employeeRow) toEmployee() *types.Employee {
	return &types.Employee{
		Account:   types.Account{ID: r.ID, Email: r.Email, PasswordHash: r.PasswordHash, Name: r.Name},
		BirthDate: r.BirthDate,
		Phone:     r.Phone,
	}
}

// Client operations

func (q queries) GetClientByEmail(ctx context.Context, email string) (*types.Client, error) {
	var row clientRow
	ds := q.builder.From("clients").Select(clientColumns...).Where(goqu.C("email").Eq(email))
	if err := q.selectOne(ctx, &row, ds); err != nil {
		return nil, err
	}
	return row.toClient(), nil
}

// LockClientByEmail reads the client row with FOR UPDATE on PostgreSQL when
// running inside a transaction. SQLite serializes writers through its single
// connection, so a plain read is already exclusive there.
func (q queries) LockClientByEmail(ctx context.Context, email string) (*types.Client, error) {
	ds := q.builder.From("clients").Select(clientColumns...).Where(goqu.C("email").Eq(email))
	if q.inTx && q.dialect == dialectPostgres {
		ds = ds.ForUpdate(exp.Wait)
	}
	var row clientRow
	if err := q.selectOne(ctx, &row, ds); err != nil {
		return nil, err
	}
	return row.toClient(), nil
}

func (q queries) CreateClient(ctx context.Context, client *types.Client) error {
	query := `INSERT INTO clients (email, password_hash, name, balance, blocked) VALUES (?, ?, ?, ?, ?)`
	id, err := q.insertReturningID(ctx, query,
		client.Email, client.PasswordHash, client.Name, client.Balance, client.Blocked)
	if err != nil {
		return fmt.Errorf("failed to create client %s: %w", client.Email, err)
	}
	client.ID = id
	return nil
}

// UpdateClient saves every mutable column of the client identified by email
func (q queries) UpdateClient(ctx context.Context, client *types.Client) error {
	query := `UPDATE clients SET password_hash = ?, name = ?, balance = ?, blocked = ? WHERE email = ?`
	result, err := q.exec(ctx, query,
		client.PasswordHash, client.Name, client.Balance, client.Blocked, client.Email)
	if err != nil {
		return fmt.Errorf("failed to update client %s: %w", client.Email, err)
	}
	return checkAffected(result)
}

func (q queries) DeleteClient(ctx context.Context, email string) error {
	result, err := q.exec(ctx, `DELETE FROM clients WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("failed to delete client %s: %w", email, err)
	}
	return checkAffected(result)
}

func (q queries) ListClients(ctx context.Context, req types.PageRequest) (*types.Page[*types.Client], error) {
	req = req.Normalize()

	ds := q.builder.From("clients")
	if req.Keyword != "" {
		ds = ds.Where(containsAny(req.Keyword, "email", "name"))
	}
	total, err := q.count(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}

	orderBy, err := q.accountOrder(req, "email", clientSortColumns)
	if err != nil {
		return nil, err
	}

	var rows []clientRow
	if err := q.selectAll(ctx, &rows, page(ds.Select(clientColumns...).Order(orderBy, goqu.C("id").Asc()), req)); err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	result := &types.Page[*types.Client]{Items: make([]*types.Client, len(rows)), Page: req.Page, Size: req.Size, Total: total}
	for i := range rows {
		result.Items[i] = rows[i].toClient()
	}
	return result, nil
}

// ListBlockedClientEmails returns the emails of all blocked clients, sorted
func (q queries) ListBlockedClientEmails(ctx context.Context) ([]string, error) {
	var emails []string
	ds := q.builder.From("clients").Select("email").Where(goqu.C("blocked").Eq(true)).Order(goqu.C("email").Asc())
	if err := q.selectAll(ctx, &emails, ds); err != nil {
		return nil, fmt.Errorf("failed to list blocked clients: %w", err)
	}
	return emails, nil
}

// Employee operations

func (q queries) GetEmployeeByEmail(ctx context.Context, email string) (*types.Employee, error) {
	var row employeeRow
	ds := q.builder.From("employees").Select(employeeColumns...).Where(goqu.C("email").Eq(email))
	if err := q.selectOne(ctx, &row, ds); err != nil {
		return nil, err
	}
	return row.toEmployee(), nil
}

func (q queries) CreateEmployee(ctx context.Context, employee *types.Employee) error {
	query := `INSERT INTO employees (email, password_hash, name, birth_date, phone) VALUES (?, ?, ?, ?, ?)`
	id, err := q.insertReturningID(ctx, query,
		employee.Email, employee.PasswordHash, employee.Name, employee.BirthDate, employee.Phone)
	if err != nil {
		return fmt.Errorf("failed to create employee %s: %w", employee.Email, err)
	}
	employee.ID = id
	return nil
}

func (q queries) UpdateEmployee(ctx context.Context, employee *types.Employee) error {
	query := `UPDATE employees SET password_hash = ?, name = ?, birth_date = ?, phone = ? WHERE email = ?`
	result, err := q.exec(ctx, query,
		employee.PasswordHash, employee.Name, employee.BirthDate, employee.Phone, employee.Email)
	if err != nil {
		return fmt.Errorf("failed to update employee %s: %w", employee.Email, err)
	}
	return checkAffected(result)
}

func (q queries) DeleteEmployee(ctx context.Context, email string) error {
	result, err := q.exec(ctx, `DELETE FROM employees WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("failed to delete employee %s: %w", email, err)
	}
	return checkAffected(result)
}

func (q queries) ListEmployees(ctx context.Context, req types.PageRequest) (*types.Page[*types.Employee], error) {
	req = req.Normalize()

	ds := q.builder.From("employees")
	if req.Keyword != "" {
		ds = ds.Where(containsAny(req.Keyword, "email", "name", "phone"))
	}
	total, err := q.count(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to count employees: %w", err)
	}

	orderBy, err := q.accountOrder(req, "email", employeeSortColumns)
	if err != nil {
		return nil, err
	}

	var rows []employeeRow
	if err := q.selectAll(ctx, &rows, page(ds.Select(employeeColumns...).Order(orderBy, goqu.C("id").Asc()), req)); err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	result := &types.Page[*types.Employee]{Items: make([]*types.Employee, len(rows)), Page: req.Page, Size: req.Size, Total: total}
	for i := range rows {
		result.Items[i] = rows[i].toEmployee()
	}
	return result, nil
}

func (q queries) accountOrder(req types.PageRequest, fallback string, allowed map[string]string) (exp.OrderedExpression, error) {
	sort := req.Sort
	if sort == "" {
		sort = fallback
	}
	col, ok := allowed[sort]
	if !ok {
		return nil, types.NewValidationError("sort", fmt.Sprintf("unsupported sort field %q", sort))
	}
	if col == "balance" {
		return ordered(q.numeric(col), req.Direction), nil
	}
	return ordered(goqu.C(col), req.Direction), nil
}
