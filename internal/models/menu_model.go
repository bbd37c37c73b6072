package models

import "time"

const (
	MenuLocationHeader  = "header"
	MenuLocationFooter  = "footer"
	MenuLocationSidebar = "sidebar"
	MenuLocationCustom  = "custom"
)

var MenuLocations = []string{MenuLocationHeader, MenuLocationFooter, MenuLocationSidebar, MenuLocationCustom}

const (
	TargetSelf  = "_self"
	TargetBlank = "_blank"
)

type Menu struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug      string     `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Location  string     `gorm:"size:20;index;not null" json:"location"`
	IsActive  bool       `json:"is_active"`
	Items     []MenuItem `gorm:"foreignKey:MenuID" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// MenuItem is stored flat; the tree is rebuilt from ParentID on read.
type MenuItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MenuID    uint      `gorm:"index;not null" json:"menu_id"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	URL       string    `gorm:"size:500;not null" json:"url"`
	Target    string    `gorm:"size:10" json:"target"`
	Order     int       `gorm:"column:sort_order" json:"order"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func IsMenuLocation(s string) bool {
	for _, l := range MenuLocations {
		if l == s {
			return true
		}
	}
	return false
}
