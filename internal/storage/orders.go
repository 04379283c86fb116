package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/shopspring/decimal"

	"github.com/dshills/bookstore-mcp/pkg/types"
)

var orderColumns = []interface{}{
	goqu.I("o.id").As("id"),
	goqu.I("c.email").As("client_email"),
	goqu.I("e.email").As("employee_email"),
	goqu.I("o.order_date").As("order_date"),
	goqu.I("o.price").As("price"),
}

var itemColumns = []interface{}{
	goqu.I("bi.id").As("id"),
	goqu.I("bi.order_id").As("order_id"),
	goqu.I("bi.book_id").As("book_id"),
	goqu.I("b.name").As("book_name"),
	goqu.I("bi.price").As("price"),
	goqu.I("bi.quantity").As("quantity"),
}

type orderRow struct {
	ID            int64           `db:"id"`
	ClientEmail   string          `db:"client_email"`
	EmployeeEmail sql.NullString  `db:"employee_email"`
	OrderDate     time.Time       `db:"order_date"`
	Price         decimal.Decimal `db:"price"`
}

func (r *orderRow) toOrder() *types.Order {
	return &types.Order{
		ID:            r.ID,
		ClientEmail:   r.ClientEmail,
		EmployeeEmail: r.EmployeeEmail.String,
		OrderDate:     r.OrderDate,
		Price:         r.Price,
		Items:         []types.BookItem{},
	}
}

type itemRow struct {
	ID       int64           `db:"id"`
	OrderID  int64           `db:"order_id"`
	BookID   int64           `db:"book_id"`
	BookName string          `db:"book_name"`
	Price    decimal.Decimal `db:"price"`
	Quantity int             `db:"quantity"`
}

// orders joined with their owner and optional confirming employee
func (q queries) orderDataset() *goqu.SelectDataset {
	return q.builder.From(goqu.T("orders").As("o")).
		Join(goqu.T("clients").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("o.client_id")))).
		LeftJoin(goqu.T("employees").As("e"), goqu.On(goqu.I("e.id").Eq(goqu.I("o.employee_id"))))
}

// CreateOrder inserts the order row and all line items
func (q queries) CreateOrder(ctx context.Context, clientID int64, order *types.Order) error {
	if len(order.Items) == 0 {
		return types.NewValidationError("items", "an order needs at least one line item")
	}

	id, err := q.insertReturningID(ctx,
		`INSERT INTO orders (client_id, employee_id, order_date, price) VALUES (?, NULL, ?, ?)`,
		clientID, order.OrderDate, order.Price)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	rows := make([]interface{}, len(order.Items))
	for i, item := range order.Items {
		rows[i] = goqu.Record{
			"order_id": id,
			"book_id":  item.BookID,
			"price":    item.BookPrice.String(),
			"quantity": item.Quantity,
		}
	}
	query, args, err := q.builder.Insert("book_items").Rows(rows...).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build order items insert: %w", err)
	}
	if _, err := q.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create order items: %w", translateError(err))
	}

	order.ID = id
	return nil
}

func (q queries) GetOrder(ctx context.Context, id int64) (*types.Order, error) {
	var row orderRow
	if err := q.selectOne(ctx, &row, q.orderDataset().Select(orderColumns...).Where(goqu.I("o.id").Eq(id))); err != nil {
		return nil, err
	}
	order := row.toOrder()
	if err := q.loadItems(ctx, []*types.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (q queries) ListOrdersByClient(ctx context.Context, email string) ([]*types.Order, error) {
	return q.listOrdersWhere(ctx, goqu.I("c.email").Eq(email))
}

func (q queries) ListOrdersByEmployee(ctx context.Context, email string) ([]*types.Order, error) {
	return q.listOrdersWhere(ctx, goqu.I("e.email").Eq(email))
}

func (q queries) listOrdersWhere(ctx context.Context, where exp.Expression) ([]*types.Order, error) {
	var rows []orderRow
	ds := q.orderDataset().Select(orderColumns...).Where(where).
		Order(goqu.I("o.order_date").Desc(), goqu.I("o.id").Desc())
	if err := q.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]*types.Order, len(rows))
	for i := range rows {
		orders[i] = rows[i].toOrder()
	}
	if err := q.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOrders pages over every order. Sorting by employee puts unconfirmed
// orders first when ascending.
func (q queries) ListOrders(ctx context.Context, req types.PageRequest) (*types.Page[*types.Order], error) {
	req = req.Normalize()

	ds := q.orderDataset()
	if req.Keyword != "" {
		ds = ds.Where(containsAny(req.Keyword, "c.email", "e.email"))
	}
	total, err := q.count(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orderBy exp.OrderedExpression
	switch req.Sort {
	case "", "order_date":
		orderBy = ordered(goqu.I("o.order_date"), req.Direction)
	case "price":
		orderBy = ordered(q.numeric("o.price"), req.Direction)
	case "employee":
		if req.Direction == types.SortDesc {
			orderBy = goqu.I("e.email").Desc().NullsLast()
		} else {
			orderBy = goqu.I("e.email").Asc().NullsFirst()
		}
	default:
		return nil, types.NewValidationError("sort", fmt.Sprintf("unsupported order sort field %q", req.Sort))
	}

	var rows []orderRow
	if err := q.selectAll(ctx, &rows, page(ds.Select(orderColumns...).Order(orderBy, goqu.I("o.id").Asc()), req)); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	result := &types.Page[*types.Order]{Items: make([]*types.Order, len(rows)), Page: req.Page, Size: req.Size, Total: total}
	for i := range rows {
		result.Items[i] = rows[i].toOrder()
	}
	if err := q.loadItems(ctx, result.Items); err != nil {
		return nil, err
	}
	return result, nil
}

// loadItems fills the Items of every order with one batched query
func (q queries) loadItems(ctx context.Context, orders []*types.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*types.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	var rows []itemRow
	ds := q.builder.From(goqu.T("book_items").As("bi")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("bi.book_id")))).
		Select(itemColumns...).
		Where(goqu.I("bi.order_id").In(ids)).
		Order(goqu.I("bi.id").Asc())
	if err := q.selectAll(ctx, &rows, ds); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	for _, row := range rows {
		order := byID[row.OrderID]
		order.Items = append(order.Items, types.BookItem{
			ID:        row.ID,
			BookID:    row.BookID,
			BookName:  row.BookName,
			BookPrice: row.Price,
			Quantity:  row.Quantity,
		})
	}
	return nil
}

// AssignEmployee is a compare-and-set on the employee column
func (q queries) AssignEmployee(ctx context.Context, orderID, employeeID int64) (bool, error) {
	result, err := q.exec(ctx,
		`UPDATE orders SET employee_id = ? WHERE id = ? AND employee_id IS NULL`, employeeID, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to confirm order %d: %w", orderID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
