package crud

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"wtfSocial/database"
	"wtfSocial/domain"
	"wtfSocial/errs"
)

// UserService manages Users. It is the profile directory: registration with a
// unique email, lookup by id, name search and the credential check used by login.
// It implements the domain.UserService interface.
type UserService struct {
	userValidator
}

// userValidator runs validations on incoming User data.
// On success, it passes the data on to userTree.
// Otherwise, it returns the error of the validation that has failed.
type userValidator struct {
	pepper     string
	bcryptCost int
	emailRegex *regexp.Regexp
	userTree
}

// userTree reads and writes /users subtrees. It assumes that data has been validated.
type userTree struct {
	tree database.Tree
}

// NewUserService returns an instance of UserService.
func NewUserService(tree database.Tree, pepper string) *UserService {
	return &UserService{
		userValidator{
			pepper:     pepper,
			bcryptCost: bcrypt.DefaultCost,
			emailRegex: regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,16}$`),
			userTree: userTree{
				tree: tree,
			},
		},
	}
}

// Ensure the UserService struct properly implements the domain.UserService interface.
var _ domain.UserService = &UserService{}

// Create validates a new user and stores it under a fresh id.
// Email uniqueness is checked by scanning all users, so two registrations racing
// with the same address can both pass the check.
func (uv *userValidator) Create(ctx context.Context, user *domain.User) error {
	err := runUserValFns(ctx, user,
		uv.fullNameLength,
		uv.emailNormalize,
		uv.emailRequired,
		uv.emailFormat,
		uv.passwordRequired,
		uv.passwordMinLength,
		uv.passwordConfirmed,
		uv.addressLength,
		uv.bioLength,
		uv.emailIsAvail,
		uv.passwordBcrypt,
		uv.passwordHashRequired)
	if err != nil {
		return err
	}
	return uv.userTree.Create(ctx, user)
}

// Update applies upd to the user's profile fields after validating them.
func (uv *userValidator) Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	probe := &domain.User{FullName: "xxx", Address: "xxx", Bio: "xxx"}
	if upd.FullName != nil {
		probe.FullName = strings.TrimSpace(*upd.FullName)
	}
	if upd.Address != nil {
		probe.Address = strings.TrimSpace(*upd.Address)
	}
	if upd.Bio != nil {
		probe.Bio = strings.TrimSpace(*upd.Bio)
	}
	err := runUserValFns(ctx, probe,
		uv.fullNameLength,
		uv.addressLength,
		uv.bioLength)
	if err != nil {
		return nil, err
	}
	return uv.userTree.Update(ctx, id, func(u *domain.User) {
		if upd.FullName != nil {
			u.FullName = probe.FullName
		}
		if upd.Address != nil {
			u.Address = probe.Address
		}
		if upd.Bio != nil {
			u.Bio = probe.Bio
		}
		if upd.ProfileImage != nil {
			u.ProfileImage = strings.TrimSpace(*upd.ProfileImage)
		}
	})
}

// Authenticate checks a submitted email address and password. Unknown email and wrong
// password produce the same error, so that login does not reveal which addresses exist.
func (uv *userValidator) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	probe := &domain.User{Email: email}
	_ = uv.emailNormalize(ctx, probe)

	found, err := uv.userTree.ByEmail(ctx, probe.Email)
	if err != nil {
		if errs.Is(err, errs.ENOTFOUND) {
			return nil, errs.Errorf(errs.EINVALID, "Wrong email or password.")
		}
		return nil, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password+uv.pepper))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errs.Errorf(errs.EINVALID, "Wrong email or password.")
		}
		return nil, err
	}
	return found, nil
}

// runUserValFns runs any number of functions of type userValFn on the passed in User object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runUserValFns(ctx context.Context, user *domain.User, fns ...userValFn) error {
	for _, fn := range fns {
		if err := fn(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

// A userValFn is any function that checks or normalizes a domain.User.
type userValFn func(ctx context.Context, user *domain.User) error

// fullNameLength trims the full name and makes sure it has 3 to 20 characters.
func (uv *userValidator) fullNameLength(ctx context.Context, user *domain.User) error {
	user.FullName = strings.TrimSpace(user.FullName)
	if n := utf8.RuneCountInString(user.FullName); n < 3 || n > 20 {
		return errs.Errorf(errs.EINVALID, "Full name should be between 3 and 20 characters.")
	}
	return nil
}

// emailNormalize converts the email to all lowercase and trims its whitespaces.
func (uv *userValidator) emailNormalize(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(user.Email)
	user.Email = strings.TrimSpace(user.Email)
	return nil
}

// emailRequired makes sure that the email is not the empty string.
func (uv *userValidator) emailRequired(ctx context.Context, user *domain.User) error {
	if user.Email == "" {
		return errs.Errorf(errs.EINVALID, "An email address is required.")
	}
	return nil
}

// emailFormat makes sure that a provided email address matches a predefined regex pattern.
func (uv *userValidator) emailFormat(ctx context.Context, user *domain.User) error {
	if !uv.emailRegex.MatchString(user.Email) {
		return errs.Errorf(errs.EINVALID, "The email address is invalid.")
	}
	return nil
}

// emailIsAvail makes sure that a provided email address is not yet taken.
func (uv *userValidator) emailIsAvail(ctx context.Context, user *domain.User) error {
	existing, err := uv.userTree.ByEmail(ctx, user.Email)
	if errs.Is(err, errs.ENOTFOUND) {
		// Address is not taken.
		return nil
	}
	if err != nil {
		return err
	}
	if user.ID != existing.ID {
		return errs.Errorf(errs.ECONFLICT, "Email is already registered.")
	}
	return nil
}

// passwordRequired makes sure that the user's password is not the empty string.
func (uv *userValidator) passwordRequired(ctx context.Context, user *domain.User) error {
	if user.Password == "" {
		return errs.Errorf(errs.EINVALID, "A password is required.")
	}
	return nil
}

// passwordMinLength makes sure that the user's password is at least 4 characters long.
func (uv *userValidator) passwordMinLength(ctx context.Context, user *domain.User) error {
	if utf8.RuneCountInString(user.Password) < 4 {
		return errs.Errorf(errs.EINVALID, "Password should be at least 4 characters.")
	}
	return nil
}

// passwordConfirmed makes sure the repeated password matches, if one was submitted.
func (uv *userValidator) passwordConfirmed(ctx context.Context, user *domain.User) error {
	if user.PasswordConfirm != "" && user.PasswordConfirm != user.Password {
		return errs.Errorf(errs.EINVALID, "Passwords do not match.")
	}
	return nil
}

// addressLength trims the address and makes sure it has 3 to 30 characters.
func (uv *userValidator) addressLength(ctx context.Context, user *domain.User) error {
	user.Address = strings.TrimSpace(user.Address)
	if n := utf8.RuneCountInString(user.Address); n < 3 || n > 30 {
		return errs.Errorf(errs.EINVALID, "Address should be between 3 and 30 characters.")
	}
	return nil
}

// bioLength trims the bio and makes sure it has 3 to 50 characters.
func (uv *userValidator) bioLength(ctx context.Context, user *domain.User) error {
	user.Bio = strings.TrimSpace(user.Bio)
	if n := utf8.RuneCountInString(user.Bio); n < 3 || n > 50 {
		return errs.Errorf(errs.EINVALID, "Bio should be between 3 and 50 characters.")
	}
	return nil
}

// passwordBcrypt hashes the password with the pepper appended and clears the
// plain text password on the user object in memory.
func (uv *userValidator) passwordBcrypt(ctx context.Context, user *domain.User) error {
	if user.Password == "" {
		return nil
	}
	pwBytes := []byte(user.Password + uv.pepper)
	hashedBytes, err := bcrypt.GenerateFromPassword(pwBytes, uv.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hashedBytes)
	user.Password = ""
	user.PasswordConfirm = ""
	return nil
}

// passwordHashRequired makes sure that the user's password hash is not the empty string.
func (uv *userValidator) passwordHashRequired(ctx context.Context, user *domain.User) error {
	if user.PasswordHash == "" {
		return errs.Errorf(errs.EINVALID, "A password is required.")
	}
	return nil
}

// ByID retrieves a user by id.
func (ut *userTree) ByID(ctx context.Context, id string) (*domain.User, error) {
	if !database.ValidSegment(id) {
		return nil, errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
	}
	user, err := database.Read[domain.User](ctx, ut.tree, userPath(id))
	if err != nil {
		if errors.Is(err, database.ErrNodeNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
		}
		return nil, storageErr(err)
	}
	return user, nil
}

// ByIDs resolves a list of user ids, skipping ids that don't resolve.
func (ut *userTree) ByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		user, err := ut.ByID(ctx, id)
		if errs.Is(err, errs.ENOTFOUND) {
			continue
		} else if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

// exists reports whether a user with the given id is stored.
func (ut *userTree) exists(ctx context.Context, id string) (bool, error) {
	_, err := ut.ByID(ctx, id)
	if errs.Is(err, errs.ENOTFOUND) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// all returns every user in directory order.
func (ut *userTree) all(ctx context.Context) ([]domain.User, error) {
	users, err := database.List[domain.User](ctx, ut.tree, "/users")
	if err != nil {
		return nil, storageErr(err)
	}
	return users, nil
}

// ByEmail scans the directory for a user with the given (normalized) email.
func (ut *userTree) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	users, err := ut.all(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			return &users[i], nil
		}
	}
	return nil, errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
}

// Search returns the users whose full name contains query, ignoring case.
// The result is empty, not nil, when nothing matches.
func (ut *userTree) Search(ctx context.Context, query string) ([]domain.User, error) {
	users, err := ut.all(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	found := make([]domain.User, 0)
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.FullName), q) {
			found = append(found, u)
		}
	}
	return found, nil
}

// Create stores a new user with empty follow sets and post list.
func (ut *userTree) Create(ctx context.Context, user *domain.User) error {
	id, err := newID()
	if err != nil {
		return err
	}
	user.ID = id
	user.Followers = domain.IDSet{}
	user.Followings = domain.IDSet{}
	user.Posts = []string{}
	user.CreatedAt = time.Now().UTC()
	return storageErr(database.Create(ctx, ut.tree, userPath(id), user))
}

// Update runs fn on the stored user inside a read-modify-write transaction.
func (ut *userTree) Update(ctx context.Context, id string, fn func(u *domain.User)) (*domain.User, error) {
	if !database.ValidSegment(id) {
		return nil, errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
	}
	var updated domain.User
	err := database.Update(ctx, ut.tree, userPath(id), func(u *domain.User) error {
		fn(u)
		updated = *u
		return nil
	})
	if errors.Is(err, database.ErrNodeNotFound) {
		return nil, errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &updated, nil
}
