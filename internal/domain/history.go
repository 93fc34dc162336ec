package domain

import "time"

// HistoryEvent описывает событие в жизненном цикле заказа.
// Журнал append-only: события переживают удаление самого заказа, поэтому
// историю доставленных и отменённых заказов можно восстановить.
type HistoryEvent struct {
	ID       int64
	OrderID  int64
	ClientID int64
	Type     string
	Reason   string
	Occurred time.Time
}
