package db

import "time"

// Record is implemented by every entity stored in a collection
type Record interface {
	GetID() string
}

// Fields is a partial update applied as a shallow merge onto a document
type Fields map[string]any

// DonationStatus is the lifecycle state of a donation
type DonationStatus string

const (
	DonationPending     DonationStatus = "pending"
	DonationConfirmed   DonationStatus = "confirmed"
	DonationCollected   DonationStatus = "collected"
	DonationDistributed DonationStatus = "distributed"
	DonationCancelled   DonationStatus = "cancelled"
)

// VolunteerStatus is the lifecycle state of a volunteer
type VolunteerStatus string

const (
	VolunteerPending  VolunteerStatus = "pending"
	VolunteerApproved VolunteerStatus = "approved"
	VolunteerActive   VolunteerStatus = "active"
	VolunteerInactive VolunteerStatus = "inactive"
	VolunteerRejected VolunteerStatus = "rejected"
)

// EventType classifies an event
type EventType string

const (
	EventCollection   EventType = "collection"
	EventDistribution EventType = "distribution"
	EventAwareness    EventType = "awareness"
	EventFundraising  EventType = "fundraising"
)

// EventStatus is the lifecycle state of an event
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// PostStatus is the lifecycle state of a blog post
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
	PostArchived  PostStatus = "archived"
)

// Roles stored on user profiles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Donor holds the contact details of the person giving a donation
type Donor struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address,omitempty"`
}

// DonationItem is one line of a donation
type DonationItem struct {
	Category  string `json:"category" validate:"required"`
	Type      string `json:"type" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
	Condition string `json:"condition,omitempty" validate:"omitempty,oneof=new excellent good fair"`
}

// Donation represents a donation record
type Donation struct {
	ID                string         `json:"id"`
	Donor             Donor          `json:"donor" validate:"required"`
	Items             []DonationItem `json:"items" validate:"required,min=1,dive"`
	DropoffLocationID string         `json:"dropoffLocationId,omitempty"`
	PickupRequested   bool           `json:"pickupRequested"`
	Notes             string         `json:"notes,omitempty"`
	Status            DonationStatus `json:"status" validate:"omitempty,oneof=pending confirmed collected distributed cancelled"`
	AssignedVolunteer string         `json:"assignedVolunteer,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

func (d Donation) GetID() string { return d.ID }

// TotalQuantity sums the quantity of every item
func (d Donation) TotalQuantity() int {
	total := 0
	for _, item := range d.Items {
		total += item.Quantity
	}
	return total
}

// Volunteer represents a volunteer record
type Volunteer struct {
	ID             string          `json:"id"`
	Name           string          `json:"name" validate:"required"`
	Email          string          `json:"email" validate:"required,email"`
	Phone          string          `json:"phone" validate:"required"`
	Skills         []string        `json:"skills"`
	Availability   []string        `json:"availability"`
	Status         VolunteerStatus `json:"status" validate:"omitempty,oneof=pending approved active inactive rejected"`
	CompletedTasks int             `json:"completedTasks" validate:"min=0"`
	Rating         float64         `json:"rating" validate:"min=0,max=5"`
	JoinedAt       time.Time       `json:"joinedAt"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (v Volunteer) GetID() string { return v.ID }

// Event represents a collection, distribution, awareness or fundraising event
type Event struct {
	ID                     string      `json:"id"`
	Title                  string      `json:"title" validate:"required"`
	Description            string      `json:"description"`
	Type                   EventType   `json:"type" validate:"required,oneof=collection distribution awareness fundraising"`
	Status                 EventStatus `json:"status" validate:"omitempty,oneof=draft published ongoing completed cancelled"`
	StartDate              time.Time   `json:"startDate" validate:"required"`
	EndDate                time.Time   `json:"endDate" validate:"required,gtefield=StartDate"`
	Location               string      `json:"location" validate:"required"`
	RegisteredParticipants int         `json:"registeredParticipants" validate:"min=0"`
	MaxParticipants        *int        `json:"maxParticipants,omitempty" validate:"omitempty,min=1"`
	Organizer              string      `json:"organizer"`
	// Recurrence is an RFC 5545 RRULE such as "FREQ=WEEKLY;BYDAY=SA"
	Recurrence             string      `json:"recurrence,omitempty" validate:"omitempty,rrule"`
	ImageURL               string      `json:"imageUrl,omitempty"`
	CreatedAt              time.Time   `json:"createdAt"`
	UpdatedAt              time.Time   `json:"updatedAt"`
}

func (e Event) GetID() string { return e.ID }

// DropoffLocation is a place where donors can leave donations
type DropoffLocation struct {
	ID             string    `json:"id"`
	Name           string    `json:"name" validate:"required"`
	Address        string    `json:"address" validate:"required"`
	City           string    `json:"city" validate:"required"`
	State          string    `json:"state"`
	ZipCode        string    `json:"zipCode"`
	ContactName    string    `json:"contactName"`
	ContactPhone   string    `json:"contactPhone"`
	ContactEmail   string    `json:"contactEmail" validate:"omitempty,email"`
	OperatingHours string    `json:"operatingHours"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (l DropoffLocation) GetID() string { return l.ID }

// BlogPost represents a blog article
type BlogPost struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug" validate:"required"`
	Title         string     `json:"title" validate:"required"`
	Summary       string     `json:"summary"`
	Content       string     `json:"content"`
	AuthorID      string     `json:"authorId"`
	AuthorName    string     `json:"authorName"`
	Status        PostStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
	FeaturedImage string     `json:"featuredImage,omitempty"`
	Tags          []string   `json:"tags"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (p BlogPost) GetID() string { return p.ID }

// AnalyticsEvent records a page view or other tracked interaction
type AnalyticsEvent struct {
	ID         string            `json:"id"`
	Name       string            `json:"name" validate:"required"`
	Path       string            `json:"path"`
	AppID      string            `json:"appId"`
	Properties map[string]string `json:"properties,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func (a AnalyticsEvent) GetID() string { return a.ID }

// UserProfile is the profile document that carries a user's role
type UserProfile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email" validate:"required,email"`
	DisplayName  string    `json:"displayName"`
	Role         string    `json:"role" validate:"required,oneof=admin user"`
	Provider     string    `json:"provider"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u UserProfile) GetID() string { return u.ID }

// IsAdmin reports whether the profile carries the admin role
func (u UserProfile) IsAdmin() bool { return u.Role == RoleAdmin }
