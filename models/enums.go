package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "Active"
	CustomerStatusProspect CustomerStatus = "Prospect"
)

func (t *CustomerStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("customer status must be string")
	}
	switch str {
	case "Active":
		*t = CustomerStatusActive
	case "Prospect":
		*t = CustomerStatusProspect
	case "":
		*t = ""
	default:
		return fmt.Errorf("invalid customer status %q", str)
	}
	return nil
}

type QuoteStatus string

const (
	QuoteStatusPrepared QuoteStatus = "Prepared"
	QuoteStatusApproved QuoteStatus = "Approved"
	QuoteStatusRejected QuoteStatus = "Rejected"
)

func (t *QuoteStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("quote status must be string")
	}
	switch str {
	case "Prepared":
		*t = QuoteStatusPrepared
	case "Approved":
		*t = QuoteStatusApproved
	case "Rejected":
		*t = QuoteStatusRejected
	case "":
		*t = ""
	default:
		return fmt.Errorf("invalid quote status %q", str)
	}
	return nil
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPreparing OrderStatus = "Preparing"
	OrderStatusCompleted OrderStatus = "Completed"
)

func (t *OrderStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("order status must be string")
	}
	switch str {
	case "Pending":
		*t = OrderStatusPending
	case "Preparing":
		*t = OrderStatusPreparing
	case "Completed":
		*t = OrderStatusCompleted
	case "":
		*t = ""
	default:
		return fmt.Errorf("invalid order status %q", str)
	}
	return nil
}

type ShipmentStatus string

const (
	ShipmentStatusInTransit ShipmentStatus = "InTransit"
	ShipmentStatusDelivered ShipmentStatus = "Delivered"
)

func (t *ShipmentStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("shipment status must be string")
	}
	switch str {
	case "InTransit":
		*t = ShipmentStatusInTransit
	case "Delivered":
		*t = ShipmentStatusDelivered
	case "":
		*t = ""
	default:
		return fmt.Errorf("invalid shipment status %q", str)
	}
	return nil
}

type MeetingStatus string

const (
	MeetingStatusScheduled  MeetingStatus = "Scheduled"
	MeetingStatusInProgress MeetingStatus = "InProgress"
	MeetingStatusPostponed  MeetingStatus = "Postponed"
	MeetingStatusCompleted  MeetingStatus = "Completed"
	MeetingStatusCancelled  MeetingStatus = "Cancelled"
)

func (t *MeetingStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("meeting status must be string")
	}
	meetingStatuses := map[string]MeetingStatus{
		"Scheduled":  MeetingStatusScheduled,
		"InProgress": MeetingStatusInProgress,
		"Postponed":  MeetingStatusPostponed,
		"Completed":  MeetingStatusCompleted,
		"Cancelled":  MeetingStatusCancelled,
		"":           "",
	}
	v, ok := meetingStatuses[str]
	if !ok {
		return fmt.Errorf("invalid meeting status %q", str)
	}
	*t = v
	return nil
}

// ActivityAction is the closed set of auditable user actions. The audit
// log stores these verbatim; adding a member here is the only way to
// introduce a new action string.
type ActivityAction string

const (
	ActionCreateCustomer        ActivityAction = "CREATE_CUSTOMER"
	ActionUpdateCustomer        ActivityAction = "UPDATE_CUSTOMER"
	ActionDeleteCustomer        ActivityAction = "DELETE_CUSTOMER"
	ActionCreateProduct         ActivityAction = "CREATE_PRODUCT"
	ActionUpdateProduct         ActivityAction = "UPDATE_PRODUCT"
	ActionDeleteProduct         ActivityAction = "DELETE_PRODUCT"
	ActionCreateQuote           ActivityAction = "CREATE_QUOTE"
	ActionUpdateQuote           ActivityAction = "UPDATE_QUOTE"
	ActionDeleteQuote           ActivityAction = "DELETE_QUOTE"
	ActionCreateOrder           ActivityAction = "CREATE_ORDER"
	ActionUpdateOrder           ActivityAction = "UPDATE_ORDER"
	ActionDeleteOrder           ActivityAction = "DELETE_ORDER"
	ActionCreateShipment        ActivityAction = "CREATE_SHIPMENT"
	ActionUpdateShipment        ActivityAction = "UPDATE_SHIPMENT"
	ActionDeleteShipment        ActivityAction = "DELETE_SHIPMENT"
	ActionCreateMeeting         ActivityAction = "CREATE_MEETING"
	ActionUpdateMeeting         ActivityAction = "UPDATE_MEETING"
	ActionDeleteMeeting         ActivityAction = "DELETE_MEETING"
	ActionMarkShipmentDelivered ActivityAction = "MARK_SHIPMENT_DELIVERED"
	ActionConvertQuoteToOrder   ActivityAction = "CONVERT_QUOTE_TO_ORDER"
)

// ActionForSave resolves the audit action for an upsert against a
// collection; create is true when the write generated a new id.
func ActionForSave(collection string, create bool) (ActivityAction, bool) {
	type pair struct{ create, update ActivityAction }
	actions := map[string]pair{
		CollectionCustomers: {ActionCreateCustomer, ActionUpdateCustomer},
		CollectionProducts:  {ActionCreateProduct, ActionUpdateProduct},
		CollectionQuotes:    {ActionCreateQuote, ActionUpdateQuote},
		CollectionOrders:    {ActionCreateOrder, ActionUpdateOrder},
		CollectionShipments: {ActionCreateShipment, ActionUpdateShipment},
		CollectionMeetings:  {ActionCreateMeeting, ActionUpdateMeeting},
	}
	p, ok := actions[collection]
	if !ok {
		return "", false
	}
	if create {
		return p.create, true
	}
	return p.update, true
}

// ActionForDelete resolves the audit action for a soft delete.
func ActionForDelete(collection string) (ActivityAction, bool) {
	actions := map[string]ActivityAction{
		CollectionCustomers: ActionDeleteCustomer,
		CollectionProducts:  ActionDeleteProduct,
		CollectionQuotes:    ActionDeleteQuote,
		CollectionOrders:    ActionDeleteOrder,
		CollectionShipments: ActionDeleteShipment,
		CollectionMeetings:  ActionDeleteMeeting,
	}
	a, ok := actions[collection]
	return a, ok
}

// ConnectionStatus is the aggregate health of all live collection
// subscriptions for the active tenant. NoTenant is absorbing while no
// authenticated identity is present.
type ConnectionStatus string

const (
	ConnectionStatusNoTenant   ConnectionStatus = "NoTenant"
	ConnectionStatusConnecting ConnectionStatus = "Connecting"
	ConnectionStatusConnected  ConnectionStatus = "Connected"
	ConnectionStatusError      ConnectionStatus = "Error"
)
