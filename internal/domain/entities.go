package domain

import (
	"time"
)

type Event struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Date              string    `json:"date"`                // free text, "DD MON" or "DD MON YYYY"
	Venue             string    `json:"venue"`
	Department        string    `json:"department"`
	Category          string    `json:"category"`
	Price             float64   `json:"price"`
	Capacity          int       `json:"capacity"`            // 0 means unlimited
	AcceptsSponsors   bool      `json:"accepts_sponsorship"`
	SponsorshipAmount float64   `json:"sponsorship_amount"`
	OwnerID           string    `json:"owner_id"`
	OwnerName         string    `json:"owner_name"`
	Archived          bool      `json:"archived"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (e Event) Unlimited() bool {
	return e.Capacity <= 0
}

type Registration struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	EventTitle    string     `json:"event_title"`
	EventDate     string     `json:"event_date"`
	EventVenue    string     `json:"event_venue"`
	UserID        string     `json:"user_id"`
	UserName      string     `json:"user_name"`
	TicketPrice   float64    `json:"ticket_price"`
	PaymentID     string     `json:"payment_id"`
	PaymentStatus string     `json:"payment_status"`
	Utilized      bool       `json:"utilized"`
	UtilizedAt    *time.Time `json:"utilized_at,omitempty"`
	CheckInID     string     `json:"check_in_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Sponsorship struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	EventTitle  string    `json:"event_title"`
	SponsorID   string    `json:"sponsor_id"`
	SponsorName string    `json:"sponsor_name"`
	Email       string    `json:"sponsor_email"`
	Details     string    `json:"details"`
	Amount      float64   `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

type ChatMessage struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}

type CategoryStat struct {
	Category      string `json:"category"`
	Registrations int    `json:"registrations"`
}

type DashboardStats struct {
	TotalEvents        int            `json:"total_events"`
	ActiveEvents       int            `json:"active_events"`
	PastEvents         int            `json:"past_events"`
	TotalRegistrations int            `json:"total_registrations"`
	LiveCheckIns       int            `json:"live_check_ins"`
	TicketRevenue      float64        `json:"ticket_revenue"`
	SponsorshipRevenue float64        `json:"sponsorship_revenue"`
	TotalRevenue       float64        `json:"total_revenue"`
	Categories         []CategoryStat `json:"categories"`
}
