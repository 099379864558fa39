package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type ListingKind string // Тип объявления

const (
	JobListing      ListingKind = "job"      // Отдельная работа
	ContractListing ListingKind = "contract" // Контракт, объединяющий несколько работ
)

// ListingRef ссылается ровно на одно объявление: работу или контракт.
type ListingRef struct {
	Kind ListingKind `json:"kind"`
	ID   string      `json:"id"`
}

// JobRef возвращает ссылку на работу.
func JobRef(id string) ListingRef { return ListingRef{Kind: JobListing, ID: id} }

// ContractRef возвращает ссылку на контракт.
func ContractRef(id string) ListingRef { return ListingRef{Kind: ContractListing, ID: id} }

// NewListingRef собирает ссылку из пары необязательных идентификаторов, заполнен должен быть ровно один.
func NewListingRef(jobID, contractID string) (ListingRef, error) {
	switch {
	case jobID != "" && contractID != "":
		return ListingRef{}, NewInvalid("exactly one of jobId or contractId must be set")
	case jobID != "":
		return JobRef(jobID), nil
	case contractID != "":
		return ContractRef(contractID), nil
	default:
		return ListingRef{}, NewInvalid("jobId or contractId is required")
	}
}

func (r ListingRef) String() string { return fmt.Sprintf("%s/%s", r.Kind, r.ID) }

// Listing представляет объявление, на которое можно делать предложения.
type Listing struct {
	Ref            ListingRef          `json:"ref"`
	Title          string              `json:"title"`
	Active         bool                `json:"active"`
	OwnerUserID    string              `json:"ownerUserId,omitempty"`
	OwnerCompanyID string              `json:"ownerCompanyId,omitempty"`
	ContractID     string              `json:"contractId,omitempty"`
	MinimumPrice   decimal.NullDecimal `json:"minimumPrice"`
	MemberJobIDs   []string            `json:"memberJobIds,omitempty"`
}

// BelowMinimum сообщает, что цена ниже минимальной цены контракта.
func (l *Listing) BelowMinimum(price decimal.Decimal) bool {
	if l.Ref.Kind != ContractListing || !l.MinimumPrice.Valid {
		return false
	}
	return price.Round(PricePrecision).LessThan(l.MinimumPrice.Decimal.Round(PricePrecision))
}

// Principal - вызывающий пользователь и компании, которыми он владеет.
type Principal struct {
	UserID    string
	Companies map[string]struct{}
}

// NewPrincipal создает Principal из списка компаний.
func NewPrincipal(userID string, companies ...string) Principal {
	p := Principal{UserID: userID, Companies: make(map[string]struct{}, len(companies))}
	for _, c := range companies {
		p.Companies[c] = struct{}{}
	}
	return p
}
