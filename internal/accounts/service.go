package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"github.com/dshills/bookstore-mcp/internal/storage"
	"github.com/dshills/bookstore-mcp/internal/telemetry"
	"github.com/dshills/bookstore-mcp/pkg/types"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or
// a wrong password. The two cases are not distinguished.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Logger is the structured logger used by the service
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Service manages client and employee accounts and the client balance ledger
type Service struct {
	store      storage.Storage
	logger     Logger
	now        func() time.Time
	bcryptCost int
}

// Option configures a Service
type Option func(*Service) error

// WithLogger sets the logger
func WithLogger(logger Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithClock overrides the clock used to validate birth dates
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		s.now = now
		return nil
	}
}

// WithBcryptCost sets the password hashing cost
func WithBcryptCost(cost int) Option {
	return func(s *Service) error {
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
		s.bcryptCost = cost
		return nil
	}
}

// NewService creates an accounts service
func NewService(store storage.Storage, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	s := &Service{
		store:      store,
		logger:     telemetry.DiscardLogger(),
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// RegisterClient creates a client. The email must be free in both the client
// and the employee identity spaces.
func (s *Service) RegisterClient(ctx context.Context, reg types.ClientRegistration) (*types.Client, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(reg.Password)
	if err != nil {
		return nil, err
	}

	client := &types.Client{
		Account: types.Account{Email: reg.Email, PasswordHash: hash, Name: strings.TrimSpace(reg.Name)},
		Balance: reg.Balance,
	}
	err = storage.RunInTx(ctx, s.store, func(tx storage.Tx) error {
		if err := emailAvailable(ctx, tx, reg.Email); err != nil {
			return err
		}
		return tx.CreateClient(ctx, client)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("client registered", "email", client.Email)
	return client, nil
}

// RegisterEmployee creates an employee under the same email rule as clients
func (s *Service) RegisterEmployee(ctx context.Context, reg types.EmployeeRegistration) (*types.Employee, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	if err := reg.Validate(s.now()); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(reg.Password)
	if err != nil {
		return nil, err
	}

	employee := &types.Employee{
		Account:   types.Account{Email: reg.Email, PasswordHash: hash, Name: strings.TrimSpace(reg.Name)},
		BirthDate: reg.BirthDate,
		Phone:     strings.TrimSpace(reg.Phone),
	}
	err = storage.RunInTx(ctx, s.store, func(tx storage.Tx) error {
		if err := emailAvailable(ctx, tx, reg.Email); err != nil {
			return err
		}
		return tx.CreateEmployee(ctx, employee)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("employee registered", "email", employee.Email)
	return employee, nil
}

// emailAvailable fails with ErrAlreadyExists if either identity space holds email
func emailAvailable(ctx context.Context, tx storage.Tx, email string) error {
	if _, err := tx.GetClientByEmail(ctx, email); err == nil {
		return fmt.Errorf("account %s: %w", email, types.ErrAlreadyExists)
	} else if !errors.Is(err, types.ErrNotFound) {
		return err
	}
	if _, err := tx.GetEmployeeByEmail(ctx, email); err == nil {
		return fmt.Errorf("account %s: %w", email, types.ErrAlreadyExists)
	} else if !errors.Is(err, types.ErrNotFound) {
		return err
	}
	return nil
}

// GetClient returns the client with email
func (s *Service) GetClient(ctx context.Context, email string) (*types.Client, error) {
	client, err := s.store.GetClientByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", email, err)
	}
	return client, nil
}

// GetEmployee returns the employee with email
func (s *Service) GetEmployee(ctx context.Context, email string) (*types.Employee, error) {
	employee, err := s.store.GetEmployeeByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("employee %s: %w", email, err)
	}
	return employee, nil
}

// ListClients returns one page of clients sorted by email, name, balance or status
func (s *Service) ListClients(ctx context.Context, req types.PageRequest) (*types.Page[*types.Client], error) {
	return s.store.ListClients(ctx, req)
}

// ListEmployees returns one page of employees
func (s *Service) ListEmployees(ctx context.Context, req types.PageRequest) (*types.Page[*types.Employee], error) {
	return s.store.ListEmployees(ctx, req)
}

// UpdateClient applies a profile update. The balance and the blocked flag are
// never touched here; the password changes only when a new one is given.
func (s *Service) UpdateClient(ctx context.Context, email string, update types.ClientUpdate) (*types.Client, error) {
	name := strings.TrimSpace(update.Name)
	if name == "" {
		return nil, types.NewValidationError("name", "cannot be empty")
	}
	hash, err := s.optionalPassword(update.Password)
	if err != nil {
		return nil, err
	}

	var client *types.Client
	err = storage.RunInTx(ctx, s.store, func(tx storage.Tx) error {
		var err error
		client, err = tx.LockClientByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("client %s: %w", email, err)
		}
		client.Name = name
		if hash != "" {
			client.PasswordHash = hash
		}
		return tx.UpdateClient(ctx, client)
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// UpdateEmployee applies a profile update under the same password rule
func (s *Service) UpdateEmployee(ctx context.Context, email string, update types.EmployeeUpdate) (*types.Employee, error) {
	name := strings.TrimSpace(update.Name)
	if name == "" {
		return nil, types.NewValidationError("name", "cannot be empty")
	}
	phone := strings.TrimSpace(update.Phone)
	if phone == "" {
		return nil, types.NewValidationError("phone", "cannot be empty")
	}
	if update.BirthDate.IsZero() || !update.BirthDate.Before(s.now()) {
		return nil, types.NewValidationError("birth_date", "must be in the past")
	}
	hash, err := s.optionalPassword(update.Password)
	if err != nil {
		return nil, err
	}

	var employee *types.Employee
	err = storage.RunInTx(ctx, s.store, func(tx storage.Tx) error {
		var err error
		employee, err = tx.GetEmployeeByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("employee %s: %w", email, err)
		}
		employee.Name = name
		employee.Phone = phone
		employee.BirthDate = update.BirthDate
		if hash != "" {
			employee.PasswordHash = hash
		}
		return tx.UpdateEmployee(ctx, employee)
	})
	if err != nil {
		return nil, err
	}
	return employee, nil
}

// DeleteClient removes a client. Clients with orders fail with types.ErrInUse.
func (s *Service) DeleteClient(ctx context.Context, email string) error {
	if err := s.store.DeleteClient(ctx, email); err != nil {
		return fmt.Errorf("client %s: %w", email, err)
	}
	s.logger.Info("client deleted", "email", email)
	return nil
}

// DeleteEmployee removes an employee. Employees who confirmed orders fail with types.ErrInUse.
func (s *Service) DeleteEmployee(ctx context.Context, email string) error {
	if err := s.store.DeleteEmployee(ctx, email); err != nil {
		return fmt.Errorf("employee %s: %w", email, err)
	}
	s.logger.Info("employee deleted", "email", email)
	return nil
}

// TopUp credits amount to the client's balance and returns the updated client.
// There is no upper bound on the resulting balance.
func (s *Service) TopUp(ctx context.Context, email string, amount decimal.Decimal) (client *types.Client, err error) {
	ctx, span := telemetry.StartSpan(ctx, "accounts.TopUp",
		attribute.String("client.email", email),
		attribute.String("amount", amount.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	if !amount.IsPositive() {
		return nil, types.NewValidationError("amount", "must be positive")
	}
	if err := types.ValidateMoneyScale("amount", amount); err != nil {
		return nil, err
	}

	err = storage.RunInTx(ctx, s.store, func(tx storage.Tx) error {
		var err error
		client, err = tx.LockClientByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("client %s: %w", email, err)
		}
		client.Balance = client.Balance.Add(amount)
		return tx.UpdateClient(ctx, client)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("balance topped up", "email", email, "amount", amount.StringFixed(2),
		"balance", client.Balance.StringFixed(2))
	return client, nil
}

// BlockClient marks the client blocked. Blocking is idempotent.
func (s *Service) BlockClient(ctx context.Context, email string) error {
	return s.setBlocked(ctx, email, true)
}

// UnblockClient clears the blocked flag
func (s *Service) UnblockClient(ctx context.Context, email string) error {
	return s.setBlocked(ctx, email, false)
}

func (s *Service) setBlocked(ctx context.Context, email string, blocked bool) error {
	err := storage.RunInTx(ctx, s.store, func(tx storage.Tx) error {
		client, err := tx.LockClientByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("client %s: %w", email, err)
		}
		client.Blocked = blocked
		return tx.UpdateClient(ctx, client)
	})
	if err != nil {
		return err
	}
	s.logger.Info("client block status changed", "email", email, "blocked", blocked)
	return nil
}

// BlockedEmails returns the emails of every blocked client
func (s *Service) BlockedEmails(ctx context.Context) ([]string, error) {
	return s.store.ListBlockedClientEmails(ctx)
}

// EnsureActive fails with types.ErrAccountBlocked if email belongs to a
// blocked client. Employees are never blocked.
func (s *Service) EnsureActive(ctx context.Context, email string) error {
	principal, err := s.Lookup(ctx, email)
	if err != nil {
		return err
	}
	if principal.Blocked {
		return fmt.Errorf("client %s: %w", email, types.ErrAccountBlocked)
	}
	return nil
}

// Lookup resolves email in either identity space and returns its role-tagged view
func (s *Service) Lookup(ctx context.Context, email string) (*types.Principal, error) {
	principal, _, err := s.lookup(ctx, email)
	return principal, err
}

// Authenticate verifies a password against the stored hash. Blocked clients
// are rejected even with the right password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*types.Principal, error) {
	principal, hash, err := s.lookup(ctx, email)
	if errors.Is(err, types.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		s.logger.Warn("authentication failed", "email", email)
		return nil, ErrInvalidCredentials
	}
	if principal.Blocked {
		return nil, fmt.Errorf("client %s: %w", email, types.ErrAccountBlocked)
	}
	return principal, nil
}

func (s *Service) lookup(ctx context.Context, email string) (*types.Principal, string, error) {
	client, err := s.store.GetClientByEmail(ctx, email)
	if err == nil {
		return &types.Principal{
			Role:    types.RoleClient,
			Email:   client.Email,
			Name:    client.Name,
			Blocked: client.Blocked,
		}, client.PasswordHash, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, "", err
	}

	employee, err := s.store.GetEmployeeByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("account %s: %w", email, err)
	}
	return &types.Principal{
		Role:  types.RoleEmployee,
		Email: employee.Email,
		Name:  employee.Name,
	}, employee.PasswordHash, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// optionalPassword hashes password unless it is blank
func (s *Service) optionalPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", nil
	}
	if len(password) < 4 {
		return "", types.NewValidationError("password", "must be at least 4 characters")
	}
	return s.hashPassword(password)
}
