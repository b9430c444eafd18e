package account

import "time"

// Role is the account type tag.
type Role string

const (
	RoleGeneral Role = "general"
	RoleDancer  Role = "dancer"
	RoleClient  Role = "client"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleGeneral, RoleDancer, RoleClient, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// ClaimStatus describes an in-flight or finished merge request.
type ClaimStatus string

const (
	ClaimNone      ClaimStatus = ""
	ClaimPending   ClaimStatus = "pending"
	ClaimApproved  ClaimStatus = "approved"
	ClaimRejected  ClaimStatus = "rejected"
	ClaimCompleted ClaimStatus = "completed"
)

// Terminal reports whether no further action is expected on the claim.
// An approved claim can still be completed.
func (s ClaimStatus) Terminal() bool {
	return s != ClaimPending && s != ClaimApproved
}

// Profile holds the public profile fields that a claim merge copies.
type Profile struct {
	Name         string `json:"name"`
	NameEN       string `json:"name_en"`
	Introduction string `json:"introduction"`
	InstagramURL string `json:"instagram_url"`
	YoutubeURL   string `json:"youtube_url"`
	TiktokURL    string `json:"tiktok_url"`
	ProfileImage string `json:"profile_image"`
	DisplayOrder int    `json:"display_order"`
}

// Account is an identity record.
type Account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Type         Role   `json:"type"`
	PendingType  *Role  `json:"pending_type,omitempty"`
	Profile
	IsHidden     bool        `json:"is_hidden"`
	ClaimUserID  *string     `json:"claim_user_id,omitempty"`
	ClaimStatus  ClaimStatus `json:"claim_status,omitempty"`
	ClaimReason  string      `json:"claim_reason,omitempty"`
	ClaimMessage string      `json:"claim_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsAdmin reports whether the stored role is admin.
func (a *Account) IsAdmin() bool {
	return a.Type == RoleAdmin
}

// CreateAccountInput holds the fields required to sign up.
type CreateAccountInput struct {
	Email       string
	Password    string
	Name        string
	Type        Role
	PendingType *Role
}

// UpdateProfileInput holds optional fields for a partial profile update.
type UpdateProfileInput struct {
	Name         *string `json:"name,omitempty"`
	NameEN       *string `json:"name_en,omitempty"`
	Type         *Role   `json:"type,omitempty"`
	Introduction *string `json:"introduction,omitempty"`
	InstagramURL *string `json:"instagram_url,omitempty"`
	YoutubeURL   *string `json:"youtube_url,omitempty"`
	TiktokURL    *string `json:"tiktok_url,omitempty"`
	ProfileImage *string `json:"profile_image,omitempty"`
	DisplayOrder *int    `json:"display_order,omitempty"`
}

// Empty reports whether the update carries no fields.
func (in UpdateProfileInput) Empty() bool {
	return in.Name == nil && in.NameEN == nil && in.Type == nil &&
		in.Introduction == nil && in.InstagramURL == nil && in.YoutubeURL == nil &&
		in.TiktokURL == nil && in.ProfileImage == nil && in.DisplayOrder == nil
}

// ClaimUpdate sets the claim columns of an account.
type ClaimUpdate struct {
	TargetID *string
	Status   ClaimStatus
	Reason   *string
	Message  *string
}

// Session represents an active login session.
type Session struct {
	TokenHash string    `json:"-"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ListParams filters account listings.
type ListParams struct {
	Type          Role
	ClaimStatus   ClaimStatus
	PendingOnly   bool
	IncludeHidden bool
}
