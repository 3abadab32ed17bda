package postgres

import (
	"context"
	"database/sql"
	"fmt"

	alertDomain "price-alert/internal/domain/alert"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repo 提供 Postgres 版警示與推播訂閱存取。
type Repo struct {
	db *sql.DB
}

// NewRepo 建立 Postgres 資料存取實例。
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

const alertColumns = `id, owner_id, ticker, target_price, condition, status, created_at, triggered_at`

// CreateAlert 寫入 active 警示並回傳完整紀錄。
func (r *Repo) CreateAlert(ctx context.Context, owner, ticker string, targetPrice decimal.Decimal, cond alertDomain.Condition) (alertDomain.Alert, error) {
	if err := alertDomain.ValidateNew(owner, ticker, targetPrice, cond); err != nil {
		return alertDomain.Alert{}, err
	}
	const q = `
INSERT INTO price_alerts (id, owner_id, ticker, target_price, condition, status)
VALUES ($1, $2, $3, $4, $5, 'active')
RETURNING created_at;
`
	a := alertDomain.Alert{
		ID:          uuid.NewString(),
		Owner:       owner,
		Ticker:      ticker,
		TargetPrice: targetPrice,
		Condition:   cond,
		Status:      alertDomain.StatusActive,
	}
	if err := r.db.QueryRowContext(ctx, q, a.ID, owner, ticker, targetPrice, string(cond)).Scan(&a.CreatedAt); err != nil {
		return alertDomain.Alert{}, alertDomain.WrapStorage("create alert", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

// ListAlerts 回傳擁有者的所有警示，新到舊。
func (r *Repo) ListAlerts(ctx context.Context, owner string) ([]alertDomain.Alert, error) {
	q := `SELECT ` + alertColumns + ` FROM price_alerts WHERE owner_id = $1 ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, alertDomain.WrapStorage("list alerts", err)
	}
	defer rows.Close()
	out, err := scanAlerts(rows)
	return out, alertDomain.WrapStorage("list alerts", err)
}

// ListActiveAlerts 跨擁有者列出 active 警示。
func (r *Repo) ListActiveAlerts(ctx context.Context) ([]alertDomain.Alert, error) {
	q := `SELECT ` + alertColumns + ` FROM price_alerts WHERE status = 'active' ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, alertDomain.WrapStorage("list active alerts", err)
	}
	defer rows.Close()
	out, err := scanAlerts(rows)
	return out, alertDomain.WrapStorage("list active alerts", err)
}

// DeleteAlert 僅刪除屬於 owner 的警示；不存在時視為成功。
func (r *Repo) DeleteAlert(ctx context.Context, owner, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	const q = `DELETE FROM price_alerts WHERE id = $1 AND owner_id = $2;`
	_, err := r.db.ExecContext(ctx, q, id, owner)
	return alertDomain.WrapStorage("delete alert", err)
}

// TryMarkTriggered 以條件式 UPDATE 做 CAS，影響列數為 1 才代表取得送出權。
func (r *Repo) TryMarkTriggered(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	const q = `
UPDATE price_alerts
SET status = 'triggered', triggered_at = NOW()
WHERE id = $1 AND status = 'active';
`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, alertDomain.WrapStorage("mark triggered", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, alertDomain.WrapStorage("mark triggered", err)
	}
	return n == 1, nil
}

// UpsertSubscription 以 endpoint 為唯一鍵，重複訂閱時更新擁有者與金鑰。
func (r *Repo) UpsertSubscription(ctx context.Context, owner, endpoint string, keys alertDomain.SubscriptionKeys) error {
	const q = `
INSERT INTO push_subscriptions (endpoint, owner_id, p256dh, auth)
VALUES ($1, $2, $3, $4)
ON CONFLICT (endpoint)
DO UPDATE SET owner_id = EXCLUDED.owner_id,
              p256dh = EXCLUDED.p256dh,
              auth = EXCLUDED.auth,
              updated_at = NOW();
`
	_, err := r.db.ExecContext(ctx, q, endpoint, owner, keys.P256dh, keys.Auth)
	return alertDomain.WrapStorage("upsert subscription", err)
}

// DeleteSubscriptionByEndpoint 冪等。
func (r *Repo) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	const q = `DELETE FROM push_subscriptions WHERE endpoint = $1;`
	_, err := r.db.ExecContext(ctx, q, endpoint)
	return alertDomain.WrapStorage("delete subscription", err)
}

// ListSubscriptions 回傳擁有者的所有裝置。
func (r *Repo) ListSubscriptions(ctx context.Context, owner string) ([]alertDomain.PushSubscription, error) {
	const q = `
SELECT owner_id, endpoint, p256dh, auth, created_at, updated_at
FROM push_subscriptions
WHERE owner_id = $1
ORDER BY endpoint;
`
	rows, err := r.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, alertDomain.WrapStorage("list subscriptions", err)
	}
	defer rows.Close()

	var out []alertDomain.PushSubscription
	for rows.Next() {
		var s alertDomain.PushSubscription
		if err := rows.Scan(&s.Owner, &s.Endpoint, &s.Keys.P256dh, &s.Keys.Auth, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, alertDomain.WrapStorage("list subscriptions", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, alertDomain.WrapStorage("list subscriptions", err)
	}
	return out, nil
}

func scanAlerts(rows *sql.Rows) ([]alertDomain.Alert, error) {
	var out []alertDomain.Alert
	for rows.Next() {
		var (
			a           alertDomain.Alert
			cond        string
			status      string
			triggeredAt sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.Owner, &a.Ticker, &a.TargetPrice, &cond, &status, &a.CreatedAt, &triggeredAt); err != nil {
			return nil, err
		}
		c, err := alertDomain.ParseCondition(cond)
		if err != nil {
			return nil, fmt.Errorf("alert %s has unknown condition %q", a.ID, cond)
		}
		a.Condition = c
		a.Status = alertDomain.Status(status)
		a.CreatedAt = a.CreatedAt.UTC()
		if triggeredAt.Valid {
			t := triggeredAt.Time.UTC()
			a.TriggeredAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
