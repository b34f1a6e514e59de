package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownWidget   = errors.New("unknown widget")
	ErrInvalidResponse = errors.New("invalid widget response")
)

// WidgetType identifies a widget rendered inside the conversation
type WidgetType string

const (
	WidgetSearchCriteria  WidgetType = "SearchCriteriaWidget"
	WidgetFlightOptions   WidgetType = "FlightOptionsWidget"
	WidgetFlightOptionsV0 WidgetType = "FlightOptionsV0Widget"
	WidgetSeatPreference  WidgetType = "SeatPreferenceWidget"
	WidgetSeatSelection   WidgetType = "SeatSelectionWidget"
	WidgetSeatCombined    WidgetType = "SeatCombinedWidget"
	WidgetSeatPayment     WidgetType = "SeatPaymentWidget"
	WidgetAddBaggage      WidgetType = "AddBaggageWidget"
	WidgetWhosTravelling  WidgetType = "WhosTravellingWidget"
	WidgetTravelerDetails WidgetType = "TravelerDetailsWidget"
	WidgetCheckInOptIn    WidgetType = "CheckInOptInWidget"
	WidgetNonAgentFlow    WidgetType = "NonAgentFlowWidget"
	WidgetPayment         WidgetType = "PaymentWidget"
	WidgetFlightStatus    WidgetType = "FlightStatusWidget"
	WidgetLounge          WidgetType = "LoungeWidget"
	WidgetWeather         WidgetType = "weatherWidget"
	WidgetBookingStatus   WidgetType = "BookingStatusWidget"
)

// CollectsInput reports whether the widget resumes the conversation.
// Display-only widgets render server data and never submit.
func (w WidgetType) CollectsInput() bool {
	switch w {
	case WidgetFlightStatus, WidgetLounge, WidgetWeather, WidgetBookingStatus:
		return false
	}
	_, ok := responseFactories[w]
	return ok
}

// WidgetRef is the {type, args} pair describing a rendered widget
type WidgetRef struct {
	Type WidgetType      `json:"type"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FrozenValueBody is the value half of a frozen display value
type FrozenValueBody struct {
	Type   string    `json:"type"`
	Widget WidgetRef `json:"widget"`
}

// FrozenValue is what the widget shows after it has been submitted
type FrozenValue struct {
	Widget WidgetRef       `json:"widget"`
	Value  FrozenValueBody `json:"value"`
}

// NewFrozenValue builds the frozen display value for a submitted widget.
func NewFrozenValue(widget WidgetType, args any) (*FrozenValue, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frozen args: %w", err)
	}
	ref := WidgetRef{Type: widget, Args: raw}
	return &FrozenValue{
		Widget: ref,
		Value:  FrozenValueBody{Type: "widget", Widget: ref},
	}, nil
}

// WidgetResponse is a typed payload collected by an input widget
type WidgetResponse interface {
	Widget() WidgetType
	Validate() error
}

// --- Search ---

type Passenger struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

type FlightSearchCriteria struct {
	Adults             int         `json:"adults"`
	Children           int         `json:"children"`
	Infants            int         `json:"infants"`
	Class              string      `json:"class"`
	DepartureDate      string      `json:"departureDate"`
	ReturnDate         string      `json:"returnDate,omitempty"`
	OriginAirport      string      `json:"originAirport"`
	DestinationAirport string      `json:"destinationAirport"`
	IsRoundTrip        bool        `json:"isRoundTrip"`
	Passengers         []Passenger `json:"passengers,omitempty"`
}

// SearchCriteriaResponse is submitted by the search criteria widget
type SearchCriteriaResponse struct {
	FlightSearchCriteria FlightSearchCriteria `json:"flightSearchCriteria"`
	SelectedTravellerIDs []string             `json:"selectedTravellerIds"`
	AllTravellers        []json.RawMessage    `json:"allTravellers"`
}

func (SearchCriteriaResponse) Widget() WidgetType { return WidgetSearchCriteria }

func (r SearchCriteriaResponse) Validate() error {
	c := r.FlightSearchCriteria
	if c.OriginAirport == "" || c.DestinationAirport == "" {
		return fmt.Errorf("%w: origin and destination airports are required", ErrInvalidResponse)
	}
	if strings.EqualFold(c.OriginAirport, c.DestinationAirport) {
		return fmt.Errorf("%w: origin and destination must differ", ErrInvalidResponse)
	}
	if c.DepartureDate == "" {
		return fmt.Errorf("%w: departure date is required", ErrInvalidResponse)
	}
	if c.IsRoundTrip && c.ReturnDate == "" {
		return fmt.Errorf("%w: return date is required for round trips", ErrInvalidResponse)
	}
	if c.Adults < 1 {
		return fmt.Errorf("%w: at least one adult is required", ErrInvalidResponse)
	}
	return nil
}

// --- Flight options ---

// FlightSelectionResponse is submitted by the flight options widgets
type FlightSelectionResponse struct {
	SelectedFlightID string `json:"selectedFlightId"`
}

func (FlightSelectionResponse) Widget() WidgetType { return WidgetFlightOptions }

func (r FlightSelectionResponse) Validate() error {
	if r.SelectedFlightID == "" {
		return fmt.Errorf("%w: selectedFlightId is required", ErrInvalidResponse)
	}
	return nil
}

// --- Seats ---

// SeatPreferenceResponse is submitted by the seat preference widget
type SeatPreferenceResponse struct {
	SeatPreference string `json:"seatPreference"`
}

func (SeatPreferenceResponse) Widget() WidgetType { return WidgetSeatPreference }

func (r SeatPreferenceResponse) Validate() error {
	if r.SeatPreference == "" {
		return fmt.Errorf("%w: seatPreference is required", ErrInvalidResponse)
	}
	return nil
}

// SeatSelectionResponse is submitted by the seat selection and combined seat widgets
type SeatSelectionResponse struct {
	SelectedSeat string  `json:"selectedSeat,omitempty"`
	SeatNumber   string  `json:"seatNumber,omitempty"`
	Price        float64 `json:"price"`
	Type         string  `json:"type,omitempty"`
	Option       string  `json:"option"`
}

func (SeatSelectionResponse) Widget() WidgetType { return WidgetSeatSelection }

// Seat returns whichever seat field the widget populated.
func (r SeatSelectionResponse) Seat() string {
	if r.SelectedSeat != "" {
		return r.SelectedSeat
	}
	return r.SeatNumber
}

func (r SeatSelectionResponse) Validate() error {
	if r.Option == "" {
		return fmt.Errorf("%w: option is required", ErrInvalidResponse)
	}
	if r.Option != "random_free_seat" && r.Seat() == "" {
		return fmt.Errorf("%w: a seat is required for option %s", ErrInvalidResponse, r.Option)
	}
	if r.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidResponse)
	}
	return nil
}

// SeatPaymentResponse is submitted by the seat payment confirmation widget
type SeatPaymentResponse struct {
	SeatNumber        string  `json:"seatNumber"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	PaymentSuccessful bool    `json:"paymentSuccessful"`
	Action            string  `json:"action"`
}

func (SeatPaymentResponse) Widget() WidgetType { return WidgetSeatPayment }

func (r SeatPaymentResponse) Validate() error {
	switch r.Action {
	case "cancelled", "payment_failed":
		if r.PaymentSuccessful {
			return fmt.Errorf("%w: action %s cannot be successful", ErrInvalidResponse, r.Action)
		}
	case "payment_successful":
		if !r.PaymentSuccessful {
			return fmt.Errorf("%w: action payment_successful must be successful", ErrInvalidResponse)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidResponse, r.Action)
	}
	return nil
}

// --- Baggage ---

// BaggageSelectionResponse is submitted by the add baggage widget
type BaggageSelectionResponse struct {
	BaggageSelection map[string]int `json:"baggageSelection"`
	TotalBags        int            `json:"totalBags"`
	TotalWeight      float64        `json:"totalWeight"`
	TotalPrice       float64        `json:"totalPrice"`
	Action           string         `json:"action"`
}

func (BaggageSelectionResponse) Widget() WidgetType { return WidgetAddBaggage }

func (r BaggageSelectionResponse) Validate() error {
	if r.TotalBags <= 0 {
		return fmt.Errorf("%w: at least one bag must be selected", ErrInvalidResponse)
	}
	return nil
}

// --- Travellers ---

type TravellerName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type TravelDocument struct {
	Number          string `json:"number"`
	DocumentType    string `json:"documentType"`
	Nationality     string `json:"nationality"`
	IssuanceCountry string `json:"issuanceCountry"`
	ExpiryDate      string `json:"expiryDate"`
	Holder          bool   `json:"holder"`
}

type Phone struct {
	DeviceType         string `json:"deviceType"`
	CountryCallingCode string `json:"countryCallingCode"`
	Number             string `json:"number"`
}

type TravellerContact struct {
	Purpose      string  `json:"purpose"`
	Phones       []Phone `json:"phones"`
	EmailAddress string  `json:"emailAddress"`
}

type Traveller struct {
	ID          string           `json:"id"`
	Name        TravellerName    `json:"name"`
	Gender      string           `json:"gender"`
	DateOfBirth string           `json:"dateOfBirth"`
	Documents   []TravelDocument `json:"documents"`
	Contact     TravellerContact `json:"contact"`
}

type ContactInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// TravellerSelectionResponse is submitted by the who's travelling widget
type TravellerSelectionResponse struct {
	TravellersDetail []Traveller `json:"travellersDetail"`
	ContactInfo      ContactInfo `json:"contactInfo"`
}

func (TravellerSelectionResponse) Widget() WidgetType { return WidgetWhosTravelling }

func (r TravellerSelectionResponse) Validate() error {
	if len(r.TravellersDetail) == 0 {
		return fmt.Errorf("%w: at least one traveller is required", ErrInvalidResponse)
	}
	for i, t := range r.TravellersDetail {
		if t.Name.FirstName == "" || t.Name.LastName == "" {
			return fmt.Errorf("%w: traveller %d is missing a name", ErrInvalidResponse, i)
		}
	}
	if r.ContactInfo.Email == "" {
		return fmt.Errorf("%w: contact email is required", ErrInvalidResponse)
	}
	return nil
}

// BookingConfirmation is submitted by the traveler details review widget
// with the booking_confirmation resumption type.
type BookingConfirmation struct {
	FlightDetails  json.RawMessage `json:"flightDetails"`
	Passenger      json.RawMessage `json:"passenger"`
	Contact        json.RawMessage `json:"contact"`
	Document       json.RawMessage `json:"document,omitempty"`
	SeatAllocation json.RawMessage `json:"seatAllocation,omitempty"`
	Total          float64         `json:"total"`
}

func (BookingConfirmation) Widget() WidgetType { return WidgetTravelerDetails }

func (r BookingConfirmation) Validate() error {
	if len(r.Passenger) == 0 || len(r.Contact) == 0 {
		return fmt.Errorf("%w: passenger and contact are required", ErrInvalidResponse)
	}
	if r.Total < 0 {
		return fmt.Errorf("%w: total cannot be negative", ErrInvalidResponse)
	}
	return nil
}

// --- Check-in ---

// CheckInOptInResponse is submitted by the check-in opt-in widget
type CheckInOptInResponse struct {
	PNR            string `json:"pnr"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	DocumentType   string `json:"documentType,omitempty"`
	DocumentNumber string `json:"documentNumber,omitempty"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
	IssuingCountry string `json:"issuingCountry,omitempty"`
	ExpiryDate     string `json:"expiryDate,omitempty"`
}

func (CheckInOptInResponse) Widget() WidgetType { return WidgetCheckInOptIn }

func (r CheckInOptInResponse) Validate() error {
	if strings.TrimSpace(r.PNR) == "" {
		return fmt.Errorf("%w: pnr is required", ErrInvalidResponse)
	}
	if r.DocumentType != "" && r.DocumentNumber == "" {
		return fmt.Errorf("%w: documentNumber is required with documentType", ErrInvalidResponse)
	}
	return nil
}

// --- Payment ---

func (PaymentResult) Widget() WidgetType { return WidgetNonAgentFlow }

func (r PaymentResult) Validate() error {
	if r.PaymentStatus == "" || r.BookingStatus == "" {
		return fmt.Errorf("%w: paymentStatus and bookingStatus are required", ErrInvalidResponse)
	}
	return nil
}

var responseFactories = map[WidgetType]func() WidgetResponse{
	WidgetSearchCriteria:  func() WidgetResponse { return &SearchCriteriaResponse{} },
	WidgetFlightOptions:   func() WidgetResponse { return &FlightSelectionResponse{} },
	WidgetFlightOptionsV0: func() WidgetResponse { return &FlightSelectionResponse{} },
	WidgetSeatPreference:  func() WidgetResponse { return &SeatPreferenceResponse{} },
	WidgetSeatSelection:   func() WidgetResponse { return &SeatSelectionResponse{} },
	WidgetSeatCombined:    func() WidgetResponse { return &SeatSelectionResponse{} },
	WidgetSeatPayment:     func() WidgetResponse { return &SeatPaymentResponse{} },
	WidgetAddBaggage:      func() WidgetResponse { return &BaggageSelectionResponse{} },
	WidgetWhosTravelling:  func() WidgetResponse { return &TravellerSelectionResponse{} },
	WidgetTravelerDetails: func() WidgetResponse { return &BookingConfirmation{} },
	WidgetCheckInOptIn:    func() WidgetResponse { return &CheckInOptInResponse{} },
	WidgetNonAgentFlow:    func() WidgetResponse { return &PaymentResult{} },
	WidgetPayment:         func() WidgetResponse { return &PaymentResult{} },
}

// ResumptionTypeFor returns the resumption type tag a widget submits with.
func ResumptionTypeFor(widget WidgetType) string {
	if widget == WidgetTravelerDetails {
		return ResumptionTypeBookingConfirmation
	}
	return ResumptionTypeResponse
}

// DecodeWidgetResponse narrows a raw payload into the widget's typed response
// and validates it.
func DecodeWidgetResponse(widget WidgetType, raw json.RawMessage) (WidgetResponse, error) {
	factory, ok := responseFactories[widget]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWidget, widget)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidResponse)
	}

	resp := factory()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return resp, nil
}
