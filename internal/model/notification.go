package model

const NotificationUnread = "unread"

type Notification struct {
	BaseModel
	UserID  uint   `gorm:"index;not null" json:"userId"`
	Title   string `gorm:"size:255;not null" json:"title"`
	Message string `gorm:"type:text;not null" json:"message"`
	Status  string `gorm:"size:20;default:'unread'" json:"status"`
}

func (Notification) TableName() string {
	return "notifications"
}
