package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string     `gorm:"size:100;not null" json:"name"`
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role      UserRole   `gorm:"size:20;default:'student'" json:"role"`
	Avatar    string     `gorm:"size:255" json:"avatar"`
	Disabled  bool       `gorm:"default:false" json:"disabled"`
	Purchases []Purchase `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Purchase records that a user bought a course. Rows are written by the
// order subsystem; this service only reads them.
type Purchase struct {
	BaseModel
	UserID   uint   `gorm:"index;not null" json:"userId"`
	CourseID string `gorm:"index;type:varchar(36);not null" json:"courseId"`
}

func (Purchase) TableName() string {
	return "user_courses"
}

// Actor is the authenticated caller of a request together with the courses
// it has bought.
type Actor struct {
	UserID             uint
	Name               string
	Email              string
	Avatar             string
	Role               UserRole
	PurchasedCourseIDs []string
}

func NewActor(u *User) *Actor {
	ids := make([]string, 0, len(u.Purchases))
	for _, p := range u.Purchases {
		ids = append(ids, p.CourseID)
	}
	return &Actor{
		UserID:             u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Avatar:             u.Avatar,
		Role:               u.Role,
		PurchasedCourseIDs: ids,
	}
}

// Snapshot captures the actor as the author of a new question, reply or review.
func (a *Actor) Snapshot() AuthorSnapshot {
	return AuthorSnapshot{ID: a.UserID, Name: a.Name, Avatar: a.Avatar}
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == Admin
}
