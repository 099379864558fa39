package services_test

import (
	"testing"

	"github.com/senyabanana/bid-engine/internal/models"
	"github.com/senyabanana/bid-engine/internal/services"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestTransitionFromPending(t *testing.T) {
	cases := []struct {
		event services.BidEvent
		want  models.BidStatus
	}{
		{services.EventAccept, models.AcceptedBid},
		{services.EventDecline, models.DeclinedBid},
		{services.EventRetract, models.RetractedBid},
		{services.EventEdit, models.PendingBid},
	}
	for _, tc := range cases {
		t.Run(string(tc.event), func(t *testing.T) {
			next, err := services.Transition(models.PendingBid, tc.event)
			assert.NoError(t, err)
			check.Equal(t, tc.want, next)
		})
	}
}

func TestTransitionFromTerminalStatuses(t *testing.T) {
	terminal := []models.BidStatus{models.AcceptedBid, models.DeclinedBid, models.RetractedBid}
	events := []services.BidEvent{services.EventAccept, services.EventDecline, services.EventRetract, services.EventEdit}

	for _, from := range terminal {
		for _, event := range events {
			_, err := services.Transition(from, event)
			assert.NotNil(t, err)
			check.Equal(t, models.KindInvalidState, models.KindOf(err))
			check.Equal(t, services.ErrBidNotUpdatable, err.Error())
		}
	}
}

func TestParseBidStatus(t *testing.T) {
	status, err := services.ParseBidStatus("declined")
	assert.NoError(t, err)
	check.Equal(t, models.DeclinedBid, status)

	_, err = services.ParseBidStatus("Declined")
	check.NotNil(t, err)
	_, err = services.ParseBidStatus("")
	check.NotNil(t, err)
}

func TestTerminalStatusesAreInactive(t *testing.T) {
	for _, status := range []models.BidStatus{models.PendingBid, models.AcceptedBid, models.DeclinedBid, models.RetractedBid} {
		bid := models.Bid{Active: status != models.PendingBid}
		bid.SetStatus(status)
		check.Equal(t, status == models.PendingBid, bid.Active)
		check.Equal(t, !bid.Active, status.IsTerminal())
	}
}
