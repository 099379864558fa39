package services

import "github.com/senyabanana/bid-engine/internal/models"

// OwnsCompany проверяет, что пользователь владеет компанией.
func OwnsCompany(p models.Principal, companyId string) bool {
	_, ok := p.Companies[companyId]
	return companyId != "" && ok
}

// CanActOnListing проверяет, что пользователь действует со стороны владельца объявления:
// владеет компанией-владельцем или сам является владельцем работы.
func CanActOnListing(p models.Principal, listing *models.Listing) bool {
	if listing == nil {
		return false
	}
	if OwnsCompany(p, listing.OwnerCompanyID) {
		return true
	}
	return listing.Ref.Kind == models.JobListing && listing.OwnerUserID != "" && listing.OwnerUserID == p.UserID
}

// CanViewBid разрешает просмотр предложения компании-автору и владельцу объявления.
func CanViewBid(p models.Principal, bid *models.Bid, listing *models.Listing) bool {
	return OwnsCompany(p, bid.CompanyID) || CanActOnListing(p, listing)
}

// isSelfBid сообщает, что компания принадлежит стороне владельца объявления.
// ownerUserCompanies - компании пользователя, владеющего работой напрямую.
func isSelfBid(p models.Principal, companyId string, listing *models.Listing, ownerUserCompanies []string) bool {
	if companyId == listing.OwnerCompanyID || CanActOnListing(p, listing) {
		return true
	}
	for _, c := range ownerUserCompanies {
		if c == companyId {
			return true
		}
	}
	return false
}
