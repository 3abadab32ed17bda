package alert

// DeliveryResult 為單次推播的三態結果。
type DeliveryResult int

const (
	// Delivered 推播服務回應 2xx。
	Delivered DeliveryResult = iota
	// Gone 端點永久失效（404/410），呼叫端應刪除訂閱。
	Gone
	// TransientError 其他失敗，本輪不重試也不改狀態。
	TransientError
)

func (r DeliveryResult) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case Gone:
		return "gone"
	default:
		return "transient_error"
	}
}
