package auth

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is a person who can log in
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID   `bun:"id,pk,type:uuid" json:"id"`
	Email         string      `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string      `bun:"password_hash,notnull" json:"-"`
	DisplayName   string      `bun:"display_name,notnull" json:"displayName"`
	Phone         string      `bun:"phone" json:"phone,omitempty"`
	Role          Role        `bun:"role,notnull" json:"role"`
	BranchID      string      `bun:"branch_id" json:"branchId,omitempty"`
	Permissions   Permissions `bun:"permissions,notnull" json:"permissions"`
	IsActive      bool        `bun:"is_active,notnull" json:"isActive"`
	LastLoginAt   *time.Time  `bun:"last_login_at,nullzero" json:"lastLoginAt,omitempty"`
	CreatedAt     *time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt,omitempty"`
}

// NormalizeEmail lower cases and trims an email so lookups are case insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalize cleans user supplied fields in place
func (a *Account) Normalize() *Account {
	a.Email = NormalizeEmail(a.Email)
	a.DisplayName = strings.TrimSpace(a.DisplayName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.BranchID = NormalizeBranchCode(a.BranchID)
	return a
}

// Validate checks the account invariants. Branch scoped roles need a branch,
// every other role must not have one.
func (a *Account) Validate() error {
	err := validation.ValidateStruct(a,
		validation.Field(&a.Email, emailRules...),
		validation.Field(&a.DisplayName, displayNameRules...),
		validation.Field(&a.Role, validation.Required, validation.By(roleRule)),
		validation.Field(&a.BranchID, validation.By(branchBindingRule(a.Role))),
	)
	if err != nil {
		return validationError(err)
	}
	return nil
}

// Actor returns the reference used in activity events
func (a *Account) Actor() ActorRef {
	if a == nil {
		return ActorRef{}
	}
	return ActorRef{ID: a.ID.String(), Type: string(a.Role)}
}

// BranchContact is a leadership slot embedded in a branch row
type BranchContact struct {
	Name      string `bun:"name" json:"name"`
	Email     string `bun:"email" json:"email"`
	Phone     string `bun:"phone" json:"phone"`
	AccountID string `bun:"account_id" json:"accountId"`
}

// IsEmpty is true when no field of the slot is set
func (c BranchContact) IsEmpty() bool {
	return c.Name == "" && c.Email == "" && c.Phone == "" && c.AccountID == ""
}

// HeldBy reports whether the slot is bound to the account
func (c BranchContact) HeldBy(accountID uuid.UUID) bool {
	return c.AccountID != "" && c.AccountID == accountID.String()
}

// Branch is a student branch of the chapter
type Branch struct {
	bun.BaseModel `bun:"table:branches,alias:br"`
	ID            uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	Code          string        `bun:"code,notnull,unique" json:"code"`
	Name          string        `bun:"name,notnull" json:"name"`
	IsActive      bool          `bun:"is_active,notnull" json:"isActive"`
	Chairperson   BranchContact `bun:"embed:chairperson_" json:"chairperson"`
	Counsellor    BranchContact `bun:"embed:counsellor_" json:"counsellor"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt,omitempty"`
}

var branchCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]*$`)

var branchCodeRules = []validation.Rule{
	validation.Required,
	validation.Length(2, 32),
	validation.Match(branchCodePattern),
}

var branchNameRules = []validation.Rule{
	validation.Required,
	validation.Length(1, 160),
}

// NormalizeBranchCode is how branch codes are stored and compared
func NormalizeBranchCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Slot returns the contact held in the named slot
func (b *Branch) Slot(slot Slot) BranchContact {
	switch slot {
	case SlotChairperson:
		return b.Chairperson
	case SlotCounsellor:
		return b.Counsellor
	default:
		return BranchContact{}
	}
}

// SetSlot replaces the contact held in the named slot
func (b *Branch) SetSlot(slot Slot, contact BranchContact) {
	switch slot {
	case SlotChairperson:
		b.Chairperson = contact
	case SlotCounsellor:
		b.Counsellor = contact
	}
}

func (b *Branch) Validate() error {
	err := validation.ValidateStruct(b,
		validation.Field(&b.Code, branchCodeRules...),
		validation.Field(&b.Name, branchNameRules...),
	)
	if err != nil {
		return validationError(err)
	}
	return nil
}

// emailRules apply to every stored or submitted account email
var emailRules = []validation.Rule{
	validation.Required,
	validation.Length(3, 254),
	validation.By(emailRule),
}

// displayNameRules apply to account display names
var displayNameRules = []validation.Rule{
	validation.Required,
	validation.Length(1, 120),
}

func emailRule(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return errors.New("must be a valid email address", errors.CategoryValidation)
	}
	return nil
}

func roleRule(value any) error {
	r, _ := value.(Role)
	if r != "" && !r.IsValid() {
		return errors.New("must be a valid role", errors.CategoryValidation)
	}
	return nil
}

func branchBindingRule(role Role) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if role.IsBranchScoped() && s == "" {
			return errors.New("is required for branch scoped roles", errors.CategoryValidation)
		}
		if !role.IsBranchScoped() && s != "" {
			return errors.New("must be empty for global roles", errors.CategoryValidation)
		}
		return nil
	}
}

func validationError(err error) error {
	fields := map[string]any{}
	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
	} else {
		fields["error"] = err.Error()
	}
	return errors.Wrap(err, errors.CategoryValidation, "validation failed").
		WithTextCode(TextCodeValidation).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{"fields": fields})
}
