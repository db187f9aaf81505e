package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"

	"github.com/sells-group/competitor-research/internal/model"
)

// DefaultSyntheticCap bounds how many synthetic leads are produced per company.
const DefaultSyntheticCap = 15

// LeadGenerator produces plausible leads when no real source has any.
type LeadGenerator interface {
	Generate(company string, limit int) []model.LeadProfile
}

var (
	firstNames = []string{
		"Sarah", "Michael", "Jennifer", "David", "Emily", "James", "Jessica", "Robert",
		"Ashley", "Christopher", "Amanda", "Daniel", "Stephanie", "Matthew", "Nicole",
		"Andrew", "Samantha", "Joshua", "Elizabeth", "Anthony", "Lauren", "Kevin",
		"Rachel", "Brian", "Megan", "Mark", "Kimberly", "Steven", "Amy", "Thomas",
	}
	lastNames = []string{
		"Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez",
		"Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson", "Thomas",
		"Taylor", "Moore", "Jackson", "Martin", "Lee", "Perez", "Thompson", "White",
		"Harris", "Sanchez", "Clark", "Ramirez", "Lewis", "Robinson", "Walker",
	}
	departments = []string{
		"Sales", "Marketing", "Product", "Engineering", "Business Development", "Operations",
	}
	titlesByDepartment = map[string][]string{
		"Sales": {
			"VP of Sales", "Sales Director", "Senior Account Executive", "Account Executive",
			"Sales Development Representative", "Business Development Manager", "Regional Sales Manager",
			"Enterprise Account Manager", "Inside Sales Manager", "Sales Operations Manager",
		},
		"Marketing": {
			"VP of Marketing", "Marketing Director", "Digital Marketing Manager", "Content Marketing Manager",
			"Growth Marketing Manager", "Product Marketing Manager", "Marketing Operations Manager",
			"Brand Manager", "Demand Generation Manager", "SEO Manager",
		},
		"Product": {
			"VP of Product", "Product Director", "Senior Product Manager", "Product Manager",
			"Associate Product Manager", "Product Owner", "UX/UI Designer", "Product Analyst",
			"Technical Product Manager", "Product Operations Manager",
		},
		"Engineering": {
			"CTO", "VP of Engineering", "Engineering Director", "Senior Software Engineer",
			"Software Engineer", "DevOps Engineer", "Data Engineer", "Frontend Engineer",
			"Backend Engineer", "Full Stack Engineer",
		},
		"Business Development": {
			"VP of Business Development", "BD Director", "Business Development Manager",
			"Partnership Manager", "Strategic Partnerships", "Channel Manager",
			"Alliance Manager", "Corporate Development Manager",
		},
		"Operations": {
			"COO", "VP of Operations", "Operations Director", "Operations Manager",
			"Business Operations Manager", "Revenue Operations Manager", "Customer Success Manager",
			"Finance Manager", "HR Manager", "Legal Counsel",
		},
	}
	leadLocations = []string{
		"San Francisco, CA, USA", "New York, NY, USA", "Seattle, WA, USA", "Austin, TX, USA",
		"Boston, MA, USA", "Los Angeles, CA, USA", "Chicago, IL, USA", "Denver, CO, USA",
		"Atlanta, GA, USA", "London, UK", "Toronto, Canada", "Berlin, Germany",
	}
)

// SyntheticLeads generates deterministic leads: the same company always
// yields the same people, so re-running a workflow upserts instead of
// accumulating rows. Seed varies the output across generators.
type SyntheticLeads struct {
	Cap  int
	Seed uint64
}

// NewSyntheticLeads creates a generator capped at limit leads per company.
func NewSyntheticLeads(limit int) *SyntheticLeads {
	if limit <= 0 {
		limit = DefaultSyntheticCap
	}
	return &SyntheticLeads{Cap: limit}
}

// Generate returns min(limit, Cap) leads with distinct names. Departments
// rotate in a fixed order and titles rotate within each department.
func (s *SyntheticLeads) Generate(company string, limit int) []model.LeadProfile {
	n := min(limit, s.Cap, len(firstNames)*len(lastNames))
	if n <= 0 {
		return []model.LeadProfile{}
	}

	h := fnv.New64a()
	h.Write([]byte(model.FoldName(company))) //nolint:errcheck
	rng := rand.New(rand.NewPCG(h.Sum64(), s.Seed))

	domain := emailDomain(company)
	now := time.Now().UTC()
	used := make(map[string]bool, n)
	leads := make([]model.LeadProfile, 0, n)
	for i := range n {
		dept := departments[i%len(departments)]
		titles := titlesByDepartment[dept]
		title := titles[i%len(titles)]

		var first, last string
		for {
			first = firstNames[rng.IntN(len(firstNames))]
			last = lastNames[rng.IntN(len(lastNames))]
			if !used[first+" "+last] {
				break
			}
		}
		used[first+" "+last] = true

		handle := strings.ToLower(first) + "." + strings.ToLower(last)
		leads = append(leads, model.LeadProfile{
			Name:        first + " " + last,
			Title:       title,
			Company:     company,
			Email:       handle + "@" + domain,
			LinkedInURL: "https://linkedin.com/in/" + strings.ReplaceAll(handle, ".", "-"),
			Phone:       fmt.Sprintf("+1-%d-%d-%d", 200+rng.IntN(800), 100+rng.IntN(900), 1000+rng.IntN(9000)),
			Location:    leadLocations[rng.IntN(len(leadLocations))],
			Department:  dept,
			Seniority:   seniorityOf(title),
			Source:      model.SourceSynthetic,
			CreatedAt:   now,
		})
	}
	return leads
}

// seniorityOf buckets a title by keyword.
func seniorityOf(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	has := func(keys ...string) bool {
		for _, w := range words {
			for _, k := range keys {
				if w == k {
					return true
				}
			}
		}
		return false
	}
	switch {
	case has("vp", "ceo", "cto", "coo", "director"):
		return "Executive"
	case has("manager", "lead", "head"):
		return "Manager"
	case has("senior"):
		return "Senior"
	default:
		return "Individual Contributor"
	}
}

// emailDomain keeps the letters and digits of the company name.
func emailDomain(company string) string {
	var b strings.Builder
	for _, r := range model.FoldName(company) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		b.WriteString("example")
	}
	return b.String() + ".com"
}

// SyntheticSource adapts a LeadGenerator to the LeadSource chain.
type SyntheticSource struct {
	gen LeadGenerator
}

// NewSyntheticSource wraps gen as the last link of a lead chain.
func NewSyntheticSource(gen LeadGenerator) *SyntheticSource {
	return &SyntheticSource{gen: gen}
}

func (s *SyntheticSource) Name() string { return string(model.SourceSynthetic) }

func (s *SyntheticSource) FetchLeads(ctx context.Context, company string, limit int) ([]model.LeadProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.gen.Generate(company, limit), nil
}
