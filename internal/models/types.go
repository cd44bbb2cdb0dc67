package models

// User is one record in the users file. PasswordHash is a bcrypt digest and
// must never be serialized into an API response.
type User struct {
	ID                 int      `json:"id"`
	Username           string   `json:"username"`
	PasswordHash       string   `json:"passwordHash"`
	Role               string   `json:"role"`
	Permissions        []string `json:"permissions"`
	Email              string   `json:"email"`
	CreatedAt          string   `json:"createdAt"`
	LastLogin          *string  `json:"lastLogin"`
	IsActive           bool     `json:"isActive"`
	MustChangePassword bool     `json:"mustChangePassword,omitempty"`
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// PublicUser is the client-facing projection of a User.
type PublicUser struct {
	ID                 int      `json:"id"`
	Username           string   `json:"username"`
	Role               string   `json:"role"`
	Permissions        []string `json:"permissions"`
	Email              string   `json:"email,omitempty"`
	CreatedAt          string   `json:"createdAt,omitempty"`
	LastLogin          *string  `json:"lastLogin,omitempty"`
	IsActive           bool     `json:"isActive"`
	MustChangePassword bool     `json:"mustChangePassword,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:                 u.ID,
		Username:           u.Username,
		Role:               u.Role,
		Permissions:        u.Permissions,
		Email:              u.Email,
		CreatedAt:          u.CreatedAt,
		LastLogin:          u.LastLogin,
		IsActive:           u.IsActive,
		MustChangePassword: u.MustChangePassword,
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success            bool       `json:"success"`
	Token              string     `json:"token"`
	User               PublicUser `json:"user"`
	MustChangePassword bool       `json:"mustChangePassword,omitempty"`
}

type PasswordChangeRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type NewUserRequest struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Email       string   `json:"email"`
}

// Post is one blog entry inside the posts file. The file is written back
// wholesale by the editor UI, so every field round-trips as-is.
type Post struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Excerpt   string `json:"excerpt"`
	Category  string `json:"category"`
	Date      string `json:"date"`
	Image     string `json:"image"`
	Published bool   `json:"published"`
	Views     int    `json:"views"`
	Content   string `json:"content"`
}

type BlogConfig struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
}

type PostCollection struct {
	Posts  []Post     `json:"posts"`
	Config BlogConfig `json:"config"`
}

// ImageInfo describes one uploaded file in the gallery listing.
type ImageInfo struct {
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	Size       int64  `json:"size"`
	UploadTime string `json:"uploadTime"`
	Type       string `json:"type"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
}
