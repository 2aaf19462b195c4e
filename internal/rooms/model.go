package rooms

// PageRecord stores one page of a room as its serialized component forest.
type PageRecord struct {
	RoomCode         string `gorm:"column:room_code;primaryKey;size:190;not null;index:idx_canvas_pages_room_position,priority:1"`
	PageID           string `gorm:"column:page_id;primaryKey;size:190;not null"`
	Position         int    `gorm:"column:position;not null;index:idx_canvas_pages_room_position,priority:2"`
	Name             string `gorm:"column:name;size:190;not null;default:''"`
	ComponentsJSON   string `gorm:"column:components_json;type:text;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (PageRecord) TableName() string {
	return "canvas_pages"
}
