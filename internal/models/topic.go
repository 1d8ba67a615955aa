package models

// Topic is a subject-matter category. Names are unique by convention only.
type Topic struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(100);not null;index" json:"name"`
}

func (Topic) TableName() string {
	return "topics"
}

// TopicIDs collects the ids of ts in order.
func TopicIDs(ts []Topic) []uint {
	ids := make([]uint, 0, len(ts))
	for _, t := range ts {
		ids = append(ids, t.ID)
	}
	return ids
}
