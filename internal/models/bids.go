package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BidStatus string // Статус предложения

const (
	PendingBid   BidStatus = "pending"   // Предложение ожидает решения
	AcceptedBid  BidStatus = "accepted"  // Предложение выиграло
	DeclinedBid  BidStatus = "declined"  // Предложение отклонено владельцем
	RetractedBid BidStatus = "retracted" // Предложение отозвано компанией
)

// PricePrecision - количество знаков после запятой в цене предложения.
const PricePrecision int32 = 2

// MaxNoteLength - максимальная длина комментария к предложению в символах.
const MaxNoteLength = 500

// MaxPrice - наибольшая цена, которую вмещает колонка NUMERIC(12, 2).
var MaxPrice = decimal.RequireFromString("9999999999.99")

// IsTerminal сообщает, что из статуса нет переходов.
func (s BidStatus) IsTerminal() bool {
	return s == AcceptedBid || s == DeclinedBid || s == RetractedBid
}

// Bid представляет модель предложения.
type Bid struct {
	ID        string          `json:"id"`
	Price     decimal.Decimal `json:"price"`
	CompanyID string          `json:"companyId"`
	Note      string          `json:"note,omitempty"`
	Status    BidStatus       `json:"status"`
	Active    bool            `json:"active"`
	Listing   ListingRef      `json:"listing"`
	IsWinner  bool            `json:"isWinner"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// SetStatus меняет статус и синхронизирует флаг active.
func (b *Bid) SetStatus(status BidStatus) {
	b.Status = status
	b.Active = status == PendingBid
}

// BidRequest представляет структуру запроса для создания предложения.
type BidRequest struct {
	JobID      string          `json:"jobId,omitempty"`
	ContractID string          `json:"contractId,omitempty"`
	CompanyID  string          `json:"companyId"`
	Price      decimal.Decimal `json:"price"`
	Note       string          `json:"note,omitempty"`
}

// BidUpdateRequest представляет структуру запроса для изменения предложения.
type BidUpdateRequest struct {
	Price  *decimal.Decimal `json:"price,omitempty"`
	Note   *string          `json:"note,omitempty"`
	Status *BidStatus       `json:"status,omitempty"`
}

// IsEmpty сообщает, что в запросе нет ни одного поля.
func (r BidUpdateRequest) IsEmpty() bool {
	return r.Price == nil && r.Note == nil && r.Status == nil
}

// BidHistory представляет запись журнала изменений предложения.
type BidHistory struct {
	ID          string          `json:"id"`
	BidID       string          `json:"bidId"`
	FromStatus  BidStatus       `json:"fromStatus,omitempty"`
	ToStatus    BidStatus       `json:"toStatus"`
	Price       decimal.Decimal `json:"price"`
	Note        string          `json:"note,omitempty"`
	ActorUserID string          `json:"actorUserId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// BidStats представляет агрегированную статистику цен по объявлению.
type BidStats struct {
	Count         int64             `json:"count"`
	Median        decimal.Decimal   `json:"median"`
	Average       decimal.Decimal   `json:"average"`
	Min           decimal.Decimal   `json:"min"`
	Max           decimal.Decimal   `json:"max"`
	DailyAverages []DailyBidAverage `json:"dailyAverages"`
}

// DailyBidAverage - средняя цена предложений за день.
type DailyBidAverage struct {
	Day     time.Time       `json:"day"`
	Average decimal.Decimal `json:"average"`
	Count   int64           `json:"count"`
}

// StatsFilter ограничивает выборку для статистики.
type StatsFilter struct {
	From   *time.Time
	To     *time.Time
	Status *BidStatus
}
