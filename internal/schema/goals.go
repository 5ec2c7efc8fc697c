// Package schema carries the built-in interview goals and the goal registry.
package schema

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/BTreeMap/SurveyPipe/internal/models"
)

// Built-in goal names.
const (
	GoalCCACouncilSurvey = "CCA Industry Council Pre-Workshop Survey"
	GoalConferencePrep   = "Conference Preparation Survey"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]models.Goal)
)

// Register validates a goal and adds it to the registry. Registering a second
// goal under the same name is an error.
func Register(goal models.Goal) error {
	if err := Validate(goal); err != nil {
		return fmt.Errorf("invalid goal %q: %w", goal.Name, err)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[goal.Name]; exists {
		return fmt.Errorf("goal %q already registered", goal.Name)
	}
	registry[goal.Name] = goal
	slog.Debug("schema.Register: goal registered", "goal", goal.Name, "slots", len(goal.Slots))
	return nil
}

// MustRegister registers a goal and panics on failure. Reserved for the
// built-in goals wired at init.
func MustRegister(goal models.Goal) {
	if err := Register(goal); err != nil {
		panic(err)
	}
}

// Lookup retrieves a registered goal by name.
func Lookup(name string) (models.Goal, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	goal, ok := registry[name]
	return goal, ok
}

// Names returns the registered goal names, sorted for stable output.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SectorLabels is the closed label space for "which sector do you work in",
// with indicative keywords per sector (UK English).
var SectorLabels = models.LabelSet{
	{Name: "Retail & E-commerce", Keywords: []string{"retail", "order support", "bookings", "retail returns", "product enquiries", "loyalty programs", "online orders", "e-commerce", "ecommerce", "shopping"}},
	{Name: "Financial Services", Keywords: []string{"banking", "banking queries", "fraud", "fraud detection", "loans", "insurance", "claims", "mortgages", "investments", "building societies", "finance", "financial", "bank", "credit", "money", "fintech"}},
	{Name: "Telecommunications", Keywords: []string{"telecoms", "billing queries", "service upgrades", "mobiles", "broadband", "internet", "telecom", "telecommunications"}},
	{Name: "Utilities", Keywords: []string{"account management", "outage reporting", "water", "gas", "electricity", "domestic", "oil", "utility", "utilities"}},
	{Name: "Public Sector & Government", Keywords: []string{"benefits", "benefit support", "tax", "tax enquiries", "local council services", "nhs helplines", "nhs 111", "housing", "housing associations", "government", "public sector"}},
	{Name: "Healthcare", Keywords: []string{"appointment booking", "prescription queries", "patient support", "private medical insurance", "care homes", "elderly care", "healthcare", "medical", "health", "hospital", "patients"}},
	{Name: "Travel & Hospitality", Keywords: []string{"travel bookings", "travel cancellations", "loyalty programmes", "airline", "hotels", "accommodation", "trains", "bus operators", "highways agencies", "waterways", "travel", "hospitality"}},
	{Name: "Education", Keywords: []string{"new admissions", "universities", "student support", "alumni services", "schools", "primary", "secondary", "clearing", "education", "university", "school"}},
	{Name: "Technology & IT", Keywords: []string{"software", "hardware", "pc", "it support", "technical support", "service desk", "licence management", "subscription management", "technology", "tech"}},
	{Name: "Media & Entertainment", Keywords: []string{"subscription services", "content access issues", "films", "sport", "cinema", "theatre", "pay per view", "games", "gaming", "media", "entertainment"}},
	{Name: "Outsourcing & BPO", Keywords: []string{"offshore", "3rd party", "onshore", "outsourcing", "bpo", "business process"}},
	{Name: "Charities & Non-profits", Keywords: []string{"donation support", "volunteer co-ordination", "helpline services", "charities", "non profit", "nonprofit", "charity", "voluntary", "donation"}},
	{Name: "Debt collection", Keywords: []string{"payment reminders", "account resolution", "debt collection", "debt", "collections"}},
	{Name: "Emergency services", Keywords: []string{"police", "fire service", "ambulance service", "motoring service", "coastguard", "emergency services", "emergency", "fire", "ambulance"}},
}

// ChallengeLabels is the closed label space for headwind categories.
var ChallengeLabels = models.LabelSet{
	{Name: "Economic volatility", Keywords: []string{"ageing population", "economy", "uncertainty", "financial support", "distress", "hardship", "assistance", "economic", "volatility"}},
	{Name: "Technology acceleration", Keywords: []string{"self-service", "human supported tech", "skilled", "skilling", "complex conversations", "cost", "technology", "acceleration", "tech", "digital", "automation"}},
	{Name: "Regulatory priorities", Keywords: []string{"positive regulation", "driving better customer outcomes", "reduce customer harm", "evidence", "audit", "auditing", "payment process", "regulation for good", "regulatory", "compliance", "regulation"}},
	{Name: "Sustainability agenda", Keywords: []string{"reduce energy costs", "reduce carbon emissions", "environmental impact", "society", "sustainability", "environmental", "carbon", "green", "energy"}},
	{Name: "Shifting workplace realities", Keywords: []string{"multi-generational workplaces", "geographically diverse skill bases", "recruitment challenges", "pay expectations", "recruitment", "training and development", "talent retention", "agents", "workplace", "workforce", "skills"}},
}

func labelOptions(ls models.LabelSet) ([]string, map[string][]string) {
	options := ls.Names()
	keywords := make(map[string][]string, len(ls))
	for _, l := range ls {
		if len(l.Keywords) > 0 {
			keywords[l.Name] = l.Keywords
		}
	}
	return options, keywords
}

// ccaCouncilGoal is the six-slot pre-workshop survey for the CCA Industry Council.
func ccaCouncilGoal() models.Goal {
	return models.Goal{
		Name: GoalCCACouncilSurvey,
		Slots: []models.Slot{
			{
				FieldID: "biggest_challenge",
				Prompt:  "We have identified five key trends and their implications for the customer contact sector over the next five years. Which do you see as posing the biggest challenges for your organisation?",
				Kind:    models.SlotKindChoice,
				Options: []string{"Return to customer care", "The super powered customer", "Regulation for good", "Rise of the conscious consumer", "The agent of the future"},
				Keywords: map[string][]string{
					"Return to customer care":        {"customer care", "care", "service quality", "human touch"},
					"The super powered customer":     {"super powered", "empowered customer", "customer expectations"},
					"Regulation for good":            {"regulation", "regulatory", "compliance"},
					"Rise of the conscious consumer": {"conscious consumer", "ethical", "sustainability"},
					"The agent of the future":        {"agent of the future", "agents", "workforce", "frontline"},
				},
				Required: true,
				Help:     "Please select the trend that poses the biggest challenge for your organisation.",
			},
			{
				FieldID:      "challenge_reason",
				Prompt:       "Why is that the biggest challenge for your organisation?",
				Kind:         models.SlotKindChoice,
				Options:      []string{"Financial impact", "Workforce impact", "Skills and capability implications", "Organisational strategy implications", "Something else"},
				Keywords:     map[string][]string{"Financial impact": {"financial", "cost", "budget"}, "Workforce impact": {"workforce", "staff", "people"}, "Skills and capability implications": {"skills", "capability", "training"}, "Organisational strategy implications": {"strategy", "strategic"}},
				Required:     true,
				Help:         "Please select the primary reason why this trend poses the biggest challenge.",
				DependsOn:    "biggest_challenge",
				DependsValue: models.DependsValueAny,
			},
			{
				FieldID:  "organisational_readiness",
				Prompt:   "To what extent is your organisation already looking into addressing this challenge?",
				Kind:     models.SlotKindChoice,
				Options:  []string{"Not at all", "Still considering, but no actions yet", "Being somewhat addressed across parts of the business", "It's being fully addressed in the business"},
				Keywords: map[string][]string{"Not at all": {"not at all", "nothing", "no plans"}, "Still considering, but no actions yet": {"considering", "no actions"}, "Being somewhat addressed across parts of the business": {"somewhat", "partly", "parts of the business"}, "It's being fully addressed in the business": {"fully", "fully addressed"}},
				Required: true,
				Help:     "Please indicate your organisation's current level of readiness to address this challenge.",
			},
			{
				FieldID:  "most_challenging_persona",
				Prompt:   "We have defined three personas: Future Customer, Future Frontline Worker, and Future Leader. Which of these personas do you see as being most challenging to satisfy within your organisation?",
				Kind:     models.SlotKindChoice,
				Options:  []string{"Future customer", "Future frontline worker", "Future leader"},
				Keywords: map[string][]string{"Future customer": {"customer"}, "Future frontline worker": {"frontline", "worker", "agent"}, "Future leader": {"leader", "leadership"}},
				Required: true,
				Help:     "Please select the persona that poses the biggest challenge for your organisation.",
			},
			{
				FieldID:      "persona_challenge_factor",
				Prompt:       "What is the biggest factor influencing this challenge?",
				Kind:         models.SlotKindChoice,
				Options:      []string{"Budgetary constraints", "Sourcing and location factors", "Technological factors", "Not in line with organisational strategy", "Skills and capability gaps", "Operating model", "Organisational culture and leadership", "Something else"},
				Keywords:     map[string][]string{"Budgetary constraints": {"budget", "budgetary", "funding"}, "Sourcing and location factors": {"sourcing", "location"}, "Technological factors": {"technology", "technological", "tech"}, "Skills and capability gaps": {"skills", "capability", "gaps"}, "Operating model": {"operating model"}, "Organisational culture and leadership": {"culture", "leadership"}},
				Required:     true,
				Help:         "Please select the primary factor that makes this persona challenging to satisfy.",
				DependsOn:    "most_challenging_persona",
				DependsValue: models.DependsValueAny,
			},
			{
				FieldID:  "biggest_positive_impact",
				Prompt:   "Please tell us what you see as the factor that would have the biggest positive impact on your organisation's ability to respond effectively to the future customer and employee needs set out here?",
				Kind:     models.SlotKindText,
				Required: true,
				Help:     "Please provide your thoughts on what would have the biggest positive impact.",
			},
		},
	}
}

// conferencePrepGoal is the conference preparation interview: sector and
// headwind identification, the 0-10 planning scale, and two free-text slots.
func conferencePrepGoal() models.Goal {
	sectorOptions, sectorKeywords := labelOptions(SectorLabels)
	challengeOptions, challengeKeywords := labelOptions(ChallengeLabels)
	return models.Goal{
		Name: GoalConferencePrep,
		Slots: []models.Slot{
			{
				FieldID:  "participant_name",
				Prompt:   "To get started, could you please tell me your name?",
				Kind:     models.SlotKindText,
				Required: true,
			},
			{
				FieldID:  "sector",
				Prompt:   "Can you tell me which sector you work in?",
				Kind:     models.SlotKindChoice,
				Options:  sectorOptions,
				Keywords: sectorKeywords,
				Required: true,
				Help:     "For example: Financial Services (banking, insurance), Retail & E-commerce (shopping, online orders), Healthcare (hospitals, patient care).",
			},
			{
				FieldID:  "challenge",
				Prompt:   "Please can you describe the key challenge you face, we call these headwinds.",
				Kind:     models.SlotKindChoice,
				Options:  challengeOptions,
				Keywords: challengeKeywords,
				Required: true,
				Help:     "Mention specific aspects like technology, regulation, workforce, or the economy.",
			},
			{
				FieldID:  "planning_scale",
				Prompt:   "On a scale of 0-10, where 0-4 is preparation and planning and 5-10 is execution, where are you on your journey?",
				Kind:     models.SlotKindInteger,
				Scale:    true,
				Required: true,
				Help:     "Reply with a number between 0 and 10, or describe how far along you are.",
			},
			{
				FieldID:      "planning_details",
				Prompt:       "Can you describe your challenge and your plan in more detail (up to 500 characters)?",
				Kind:         models.SlotKindText,
				Required:     true,
				DependsOn:    "planning_scale",
				DependsValue: models.DependsValueAny,
			},
			{
				FieldID:  "final_insights",
				Prompt:   "Just while we have been talking, is there anything else you have thought of which you think may be relevant?",
				Kind:     models.SlotKindText,
				Required: true,
			},
		},
	}
}

func init() {
	MustRegister(ccaCouncilGoal())
	MustRegister(conferencePrepGoal())
}
