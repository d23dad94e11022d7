package domain

import "strings"

// Category is a department key a suggestion is filed under.
type Category string

const (
	CategoryAcademics      Category = "academics"
	CategoryFacilities     Category = "facilities"
	CategoryStudentLife    Category = "student-life"
	CategoryTechnology     Category = "technology"
	CategorySafety         Category = "safety"
	CategoryAdministration Category = "administration"
	CategoryOther          Category = "other"
)

// Categories lists the fixed department keys in lookup order.
var Categories = []Category{
	CategoryAcademics,
	CategoryFacilities,
	CategoryStudentLife,
	CategoryTechnology,
	CategorySafety,
	CategoryAdministration,
	CategoryOther,
}

// PrincipalDepartment is the department label reported for the principal.
const PrincipalDepartment = "Principal"

// Department maps a category to its responsible head.
type Department struct {
	Category  Category
	HeadEmail string
}

// Name returns the humanized department name.
func (d Department) Name() string {
	return Humanize(string(d.Category))
}

// Directory is the immutable department table plus the principal address.
// It is built once at startup and shared read-only.
type Directory struct {
	principal   string
	departments []Department
	byCategory  map[Category]string
}

// NewDirectory builds a directory from category → head email. Unknown
// categories are ignored; missing ones resolve to no head.
func NewDirectory(principal string, heads map[Category]string) *Directory {
	d := &Directory{
		principal:  strings.TrimSpace(principal),
		byCategory: make(map[Category]string, len(Categories)),
	}
	for _, c := range Categories {
		email := strings.TrimSpace(heads[c])
		d.departments = append(d.departments, Department{Category: c, HeadEmail: email})
		d.byCategory[c] = email
	}
	return d
}

// Principal returns the configured principal address.
func (d *Directory) Principal() string {
	return d.principal
}

// Departments returns a copy of the department table.
func (d *Directory) Departments() []Department {
	return append([]Department(nil), d.departments...)
}

// HeadFor returns the head email for c. ok is false when c is not a known
// category or has no head configured.
func (d *Directory) HeadFor(c Category) (string, bool) {
	email, ok := d.byCategory[c]
	if !ok || email == "" {
		return "", false
	}
	return email, true
}

// IsPrincipal reports an exact match against the principal address.
func (d *Directory) IsPrincipal(email string) bool {
	return email != "" && d.principal != "" && email == d.principal
}

// CategoriesHeadedBy returns every category whose head is email.
func (d *Directory) CategoriesHeadedBy(email string) []Category {
	if email == "" {
		return nil
	}
	var out []Category
	for _, dept := range d.departments {
		if dept.HeadEmail == email {
			out = append(out, dept.Category)
		}
	}
	return out
}

// IsHead reports whether email heads at least one department.
func (d *Directory) IsHead(email string) bool {
	return len(d.CategoriesHeadedBy(email)) > 0
}

// Resolve maps a verified email to its role.
func (d *Directory) Resolve(email string) Identity {
	id := Identity{Email: email}
	if d.IsPrincipal(email) {
		id.IsAdmin = true
		id.IsPrincipal = true
		id.Department = PrincipalDepartment
		return id
	}
	if cats := d.CategoriesHeadedBy(email); len(cats) > 0 {
		id.IsAdmin = true
		id.Department = Humanize(string(cats[0]))
	}
	return id
}

// Humanize turns "student-life" into "Student Life".
func Humanize(key string) string {
	words := strings.Split(key, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
