// Package services содержит правила жизненного цикла предложений.
//
// Граф статусов предложения:
//
//	pending ──accept──► accepted
//	   │ └───decline──► declined
//	   └─────retract──► retracted
//
// accepted, declined и retracted - терминальные статусы.
// Правка цены и комментария (edit) оставляет предложение в pending.
package services

import (
	"fmt"

	"github.com/senyabanana/bid-engine/internal/models"
)

type BidEvent string // Событие, меняющее статус предложения

const (
	EventAccept  BidEvent = "accept"  // Владелец объявления принимает предложение
	EventDecline BidEvent = "decline" // Владелец объявления отклоняет предложение
	EventRetract BidEvent = "retract" // Компания отзывает свое предложение
	EventEdit    BidEvent = "edit"    // Компания меняет цену или комментарий
)

// ErrBidNotUpdatable - сообщение для переходов из терминальных статусов.
const ErrBidNotUpdatable = "Bid is not able to be updated"

var validTransitions = map[models.BidStatus]map[BidEvent]models.BidStatus{
	models.PendingBid: {
		EventAccept:  models.AcceptedBid,
		EventDecline: models.DeclinedBid,
		EventRetract: models.RetractedBid,
		EventEdit:    models.PendingBid,
	},
	// accepted, declined и retracted - терминальные, переходов нет
}

// ParseBidStatus преобразует строку в BidStatus, неизвестные значения - ошибка.
func ParseBidStatus(s string) (models.BidStatus, error) {
	status := models.BidStatus(s)
	switch status {
	case models.PendingBid, models.AcceptedBid, models.DeclinedBid, models.RetractedBid:
		return status, nil
	}
	return "", fmt.Errorf("unknown bid status %q", s)
}

// Transition возвращает статус после события или InvalidState, если переход запрещен.
func Transition(from models.BidStatus, event BidEvent) (models.BidStatus, error) {
	next, ok := validTransitions[from][event]
	if !ok {
		return "", models.NewInvalidState(ErrBidNotUpdatable)
	}
	return next, nil
}
