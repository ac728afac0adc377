package model

import "time"

// Category classifies projects
type Category string

const (
	CategoryWebDevelopment Category = "web-development"
	CategoryMobileApp      Category = "mobile-app"
	CategoryDesign         Category = "design"
	CategoryMarketing      Category = "marketing"
	CategorySEO            Category = "seo"
	CategoryEcommerce      Category = "ecommerce"
	CategoryConsulting     Category = "consulting"
)

// Project groups tasks for a team, optionally billed to a client
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TeamID      string    `json:"teamId"`
	ClientID    string    `json:"clientId,omitempty"`
	Category    Category  `json:"category,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	// Tasks is a back-reference index; Task.ProjectID owns the relation.
	Tasks      []string `json:"tasks"`
	Budget     *float64 `json:"budget,omitempty"`
	HourlyRate *float64 `json:"hourlyRate,omitempty"`
	Revenue    *float64 `json:"revenue,omitempty"`
}

// HasTask reports whether id is in the task index
func (p Project) HasTask(id string) bool {
	for _, t := range p.Tasks {
		if t == id {
			return true
		}
	}
	return false
}

// WithTask returns a copy of p with id added to the index
func (p Project) WithTask(id string) Project {
	if p.HasTask(id) {
		return p
	}
	tasks := make([]string, 0, len(p.Tasks)+1)
	tasks = append(tasks, p.Tasks...)
	p.Tasks = append(tasks, id)
	return p
}

// WithoutTask returns a copy of p with id removed from the index
func (p Project) WithoutTask(id string) Project {
	if !p.HasTask(id) {
		return p
	}
	tasks := make([]string, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		if t != id {
			tasks = append(tasks, t)
		}
	}
	p.Tasks = tasks
	return p
}

// ClientStatus is whether a client is currently engaged
type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientInactive ClientStatus = "inactive"
)

// Client is a customer that projects may be billed to
type Client struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone,omitempty"`
	Company   string       `json:"company"`
	Avatar    string       `json:"avatar,omitempty"`
	Status    ClientStatus `json:"status"`
	CreatedBy string       `json:"createdBy,omitempty"`
	TeamID    string       `json:"teamId,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Team is a named group of users
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Members     []User    `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasMember reports whether userID belongs to the team
func (t Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}
