// Package domain defines the core domain models for TradeGuard.
package domain

import (
	"encoding/json"
	"sort"
	"strconv"
)

// OfferState mirrors the remote service's trade offer state enumeration.
type OfferState int

// Trade offer states, numbered as the remote service numbers them.
const (
	OfferStateInvalid                  OfferState = 1
	OfferStateActive                   OfferState = 2
	OfferStateAccepted                 OfferState = 3
	OfferStateCountered                OfferState = 4
	OfferStateExpired                  OfferState = 5
	OfferStateCanceled                 OfferState = 6
	OfferStateDeclined                 OfferState = 7
	OfferStateInvalidItems             OfferState = 8
	OfferStateCreatedNeedsConfirmation OfferState = 9
	OfferStateCanceledBySecondFactor   OfferState = 10
	OfferStateInEscrow                 OfferState = 11
)

var offerStateNames = map[OfferState]string{
	OfferStateInvalid:                  "Invalid",
	OfferStateActive:                   "Active",
	OfferStateAccepted:                 "Accepted",
	OfferStateCountered:                "Countered",
	OfferStateExpired:                  "Expired",
	OfferStateCanceled:                 "Canceled",
	OfferStateDeclined:                 "Declined",
	OfferStateInvalidItems:             "InvalidItems",
	OfferStateCreatedNeedsConfirmation: "CreatedNeedsConfirmation",
	OfferStateCanceledBySecondFactor:   "CanceledBySecondFactor",
	OfferStateInEscrow:                 "InEscrow",
}

// String returns the state name, or the number for unknown states.
func (s OfferState) String() string {
	if name, ok := offerStateNames[s]; ok {
		return name
	}
	return strconv.Itoa(int(s))
}

// MarshalJSON encodes the state by name.
func (s OfferState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either the state name or its number.
func (s *OfferState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		for st, n := range offerStateNames {
			if n == name {
				*s = st
				return nil
			}
		}
		return ErrInvalidArgument.WithDetails("unknown offer state " + name)
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return ErrInvalidArgument.WithDetails("offer state must be a name or number")
	}
	*s = OfferState(n)
	return nil
}

// IsOpen reports whether the offer can still be accepted or declined.
func (s OfferState) IsOpen() bool {
	return s == OfferStateActive
}

// OfferFilter selects which offers a remote listing returns.
type OfferFilter int

const (
	// FilterActiveOnly returns offers that are still open.
	FilterActiveOnly OfferFilter = 1
	// FilterHistoricalOnly returns resolved offers.
	FilterHistoricalOnly OfferFilter = 2
	// FilterAll returns every offer.
	FilterAll OfferFilter = 3
)

// String returns the filter name.
func (f OfferFilter) String() string {
	switch f {
	case FilterActiveOnly:
		return "active"
	case FilterHistoricalOnly:
		return "historical"
	case FilterAll:
		return "all"
	default:
		return "unknown"
	}
}

// ParseOfferFilter parses a filter name; empty means FilterActiveOnly.
func ParseOfferFilter(s string) (OfferFilter, error) {
	switch s {
	case "", "active":
		return FilterActiveOnly, nil
	case "historical":
		return FilterHistoricalOnly, nil
	case "all":
		return FilterAll, nil
	default:
		return 0, ErrInvalidArgument.WithDetails("unknown offer filter " + strconv.Quote(s))
	}
}

// ItemRef identifies a tradeable item. It is immutable and opaque.
type ItemRef struct {
	AppID     uint32 `json:"appid"`
	ContextID string `json:"contextid"`
	AssetID   string `json:"assetid"`
}

// TradeOffer is a pending proposal from a remote party.
type TradeOffer struct {
	ID             string     `json:"id"`
	Partner        string     `json:"partner"`
	ItemsToGive    []ItemRef  `json:"items_to_give"`
	ItemsToReceive []ItemRef  `json:"items_to_receive"`
	Message        string     `json:"message,omitempty"`
	State          OfferState `json:"state"`
}

// IsGift reports whether the partner asks for nothing in return.
// It is always derived from the item lists and never stored.
func (o *TradeOffer) IsGift() bool {
	return len(o.ItemsToGive) == 0 && len(o.ItemsToReceive) > 0
}

// Clone returns a deep copy of the offer.
func (o *TradeOffer) Clone() *TradeOffer {
	if o == nil {
		return nil
	}
	c := *o
	c.ItemsToGive = append([]ItemRef(nil), o.ItemsToGive...)
	c.ItemsToReceive = append([]ItemRef(nil), o.ItemsToReceive...)
	return &c
}

// Validate checks the fields every offer must carry.
func (o *TradeOffer) Validate() error {
	if o.ID == "" {
		return ErrMissingArgument.WithDetails("offer id is required")
	}
	for _, item := range append(append([]ItemRef(nil), o.ItemsToGive...), o.ItemsToReceive...) {
		if item.AssetID == "" {
			return ErrInvalidArgument.WithDetails("offer " + o.ID + " has an item without asset id")
		}
	}
	return nil
}

// OfferView is the serialised shape of an offer delivered to the UI.
// IsGift is computed at conversion time.
type OfferView struct {
	ID             string     `json:"id"`
	Partner        string     `json:"partner"`
	ItemsToGive    []ItemRef  `json:"items_to_give"`
	ItemsToReceive []ItemRef  `json:"items_to_receive"`
	Message        string     `json:"message,omitempty"`
	State          OfferState `json:"state"`
	IsGift         bool       `json:"is_gift"`
}

// View converts the offer into its UI representation.
func (o *TradeOffer) View() OfferView {
	c := o.Clone()
	return OfferView{
		ID:             c.ID,
		Partner:        c.Partner,
		ItemsToGive:    nonNil(c.ItemsToGive),
		ItemsToReceive: nonNil(c.ItemsToReceive),
		Message:        c.Message,
		State:          c.State,
		IsGift:         c.IsGift(),
	}
}

func nonNil(items []ItemRef) []ItemRef {
	if items == nil {
		return []ItemRef{}
	}
	return items
}

// SortOffers orders offers by id, numerically when both ids are numbers.
func SortOffers(offers []*TradeOffer) {
	sort.SliceStable(offers, func(i, j int) bool {
		return lessID(offers[i].ID, offers[j].ID)
	})
}

func lessID(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
