package alert

import (
	"context"

	alertDomain "price-alert/internal/domain/alert"

	"go.uber.org/zap"
)

// DeliveryReport 彙總一批推播的結果。
type DeliveryReport struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Gone      int `json:"gone"`
	Transient int `json:"transient"`
}

func (r *DeliveryReport) add(o DeliveryReport) {
	r.Attempted += o.Attempted
	r.Delivered += o.Delivered
	r.Gone += o.Gone
	r.Transient += o.Transient
}

// deliverAll 逐一送出；單一訂閱失敗不影響其他訂閱，Gone 的訂閱會被刪除。
func deliverAll(ctx context.Context, store Store, pusher Pusher, logger *zap.Logger, subs []alertDomain.PushSubscription, body []byte) DeliveryReport {
	var rep DeliveryReport
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		rep.Attempted++
		res, err := pusher.Deliver(ctx, sub, body)
		switch res {
		case alertDomain.Delivered:
			rep.Delivered++
		case alertDomain.Gone:
			rep.Gone++
			logger.Info("push subscription gone, removing", zap.String("owner", sub.Owner), zap.String("endpoint", sub.Endpoint))
			if derr := store.DeleteSubscriptionByEndpoint(ctx, sub.Endpoint); derr != nil {
				logger.Warn("remove gone subscription failed", zap.String("endpoint", sub.Endpoint), zap.Error(derr))
			}
		default:
			rep.Transient++
			logger.Warn("push delivery failed", zap.String("owner", sub.Owner), zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
	return rep
}
