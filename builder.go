package merchpilot

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Task description builders. These are pure functions: no I/O, missing
// optional fields are substituted with defaults, and identical inputs
// produce byte-identical instruction strings.

// LoginCredentials identifies a platform account for an automated login.
type LoginCredentials struct {
	Platform string
	Username string
	Password string
	// URL overrides the fixed login URL when set.
	URL string
}

// DataExtractionRequest describes a multi-platform data pull.
type DataExtractionRequest struct {
	Platforms []string
	DataTypes []string
	Timeframe string
}

var platformLoginURLs = map[string]string{
	"swiggy":   "https://partner.swiggy.com/login",
	"zomato":   "https://www.zomato.com/partner/login",
	"magicpin": "https://magicpin.in/partners/adminDashboard",
}

var platformDashboardURLs = map[string]string{
	"swiggy":   "https://partner.swiggy.com/dashboard",
	"zomato":   "https://www.zomato.com/partner/dashboard",
	"magicpin": "https://magicpin.in/partners/dashboard",
}

// LoginURL returns the fixed login URL for a platform, or "" if the
// platform is not supported.
func LoginURL(platform string) string {
	return platformLoginURLs[strings.ToLower(platform)]
}

// DashboardURL returns the fixed dashboard URL for a platform, or "" if the
// platform is not supported.
func DashboardURL(platform string) string {
	return platformDashboardURLs[strings.ToLower(platform)]
}

// BuildLoginTask renders the step-by-step login instruction for one
// platform account.
func BuildLoginTask(creds LoginCredentials) string {
	url := creds.URL
	if url == "" {
		url = LoginURL(creds.Platform)
	}

	return fmt.Sprintf(`Navigate to %s and perform login operation with the following steps:
1. First check if already logged in by looking for dashboard elements or user profile
2. If already logged in, return success with current URL and login status
3. If not logged in, proceed with login:
   - Find and click on the username/email input field
   - Enter the username: %s
   - Find and click on the password input field
   - Enter the password: %s
   - Find and click the login/submit button
   - Wait for the page to load and verify successful login
4. Return the current page URL, login status, and any relevant dashboard information
5. If login fails, provide specific error details`, url, creds.Username, creds.Password)
}

// BuildStatusCheckTask renders the instruction that loads a dashboard and
// reports observable authentication indicators.
func BuildStatusCheckTask(platform, overrideURL string) string {
	url := overrideURL
	if url == "" {
		url = DashboardURL(platform)
	}

	return fmt.Sprintf(`Navigate to %s and check current login status:
1. Load the page and wait for it to fully render
2. Check if user is currently logged in by looking for:
   - Dashboard elements
   - User profile information
   - Navigation menus
   - Any login-required content
3. If logged in, extract key information like:
   - Current user/restaurant name
   - Dashboard metrics if visible
   - Available menu options
4. If not logged in, note what login elements are visible
5. Return detailed status about login state and available information`, url)
}

// BuildDataExtractionTask renders the per-category extraction checklist for
// one platform. Unsupported platforms yield an explicit error instruction
// rather than an empty URL.
func BuildDataExtractionTask(platform, dataType string, filters map[string]any) string {
	url := DashboardURL(platform)
	if url == "" {
		return fmt.Sprintf("Error: Unsupported platform %s", platform)
	}

	baseTask := fmt.Sprintf("Navigate directly to %s and extract %s data", url, dataType)
	filterNote := ""
	if len(filters) > 0 {
		// json.Marshal sorts map keys, keeping the output deterministic.
		encoded, _ := json.Marshal(filters)
		filterNote = fmt.Sprintf("\nApply filters: %s", encoded)
	}

	switch dataType {
	case "views":
		return baseTask + `. Extract view/visit information including:
- Total page views from all dashboard sections
- Visit statistics and metrics
- Traffic data and engagement numbers
- View counts from different tabs and sections
Navigate through all available tabs to collect comprehensive view data.` + filterNote

	case "orders":
		return baseTask + `. Extract recent order information including:
- Order counts and trends
- Revenue figures
- Average order values
- Peak hours data
Navigate to orders section in the dashboard.` + filterNote

	case "ratings":
		return baseTask + `. Extract rating and review information:
- Current overall rating
- Recent rating trends
- Customer feedback summary
- Areas for improvement
Navigate to ratings/reviews section in the dashboard.`

	case "menu":
		return baseTask + `. Extract menu information:
- Available items and categories
- Pricing information
- Item availability status
- Popular items data
Navigate to menu management section in the dashboard.`

	case "analytics", "dashboard":
		return baseTask + `. Extract analytics and performance data:
- Revenue metrics
- Order volume trends
- Customer satisfaction scores
- Platform-specific insights
- View/visit statistics
- Performance indicators
Navigate through all dashboard sections and tabs to collect comprehensive data.`

	default:
		return baseTask + fmt.Sprintf(`. Extract available information of type: %s
Navigate to relevant sections in the dashboard to collect the requested data.`, dataType)
	}
}

// BuildMultiPlatformExtractionTask composes one instruction covering every
// requested platform: the fixed URL list first, then the per-category
// checklist, then a detailed per-platform walkthrough.
func BuildMultiPlatformExtractionTask(req DataExtractionRequest) string {
	if len(req.Platforms) == 0 {
		return "No platforms specified for data extraction"
	}

	timeframe := req.Timeframe
	if timeframe == "" {
		timeframe = "today"
	}
	has := func(t string) bool {
		for _, dt := range req.DataTypes {
			if dt == t {
				return true
			}
		}
		return false
	}

	var b strings.Builder
	b.WriteString("Extract comprehensive business data from the following connected platforms using their fixed dashboard URLs:\n")
	for _, platform := range req.Platforms {
		if url := DashboardURL(platform); url != "" {
			fmt.Fprintf(&b, "- %s: Navigate to %s\n", platform, url)
		}
	}

	b.WriteString("\nFor each platform dashboard, collect the following data:\n")
	if has("views") || has("analytics") || has("dashboard") {
		b.WriteString("- Total views/visits from all tabs and sections\n")
		b.WriteString("- Page view statistics and metrics\n")
		b.WriteString("- Visitor engagement data\n")
	}
	if has("orders") || has("analytics") {
		fmt.Fprintf(&b, "- Current order volume and trends for %s\n", timeframe)
		b.WriteString("- Revenue figures and transaction data\n")
		b.WriteString("- Average order value and performance metrics\n")
		b.WriteString("- Peak hours and delivery performance\n")
	}
	if has("ratings") {
		b.WriteString("- Current overall rating for each platform\n")
		b.WriteString("- Recent rating trends and changes\n")
		b.WriteString("- Customer review highlights and feedback\n")
	}
	if has("menu") {
		b.WriteString("- Menu item availability status\n")
		b.WriteString("- Popular items and categories\n")
		b.WriteString("- Out of stock items\n")
		b.WriteString("- Pricing information\n")
	}

	b.WriteString("\nDetailed Instructions:\n")
	for _, platform := range req.Platforms {
		url := DashboardURL(platform)
		if url == "" {
			continue
		}
		fmt.Fprintf(&b, `
For %s:
1. Navigate directly to %s
2. Wait for the dashboard to fully load
3. Check all available tabs and sections for data
4. Extract views/visits numbers from all visible sections
5. Collect performance metrics and KPIs
6. Navigate through different dashboard sections if needed
7. Capture any alerts, notifications, or issues
8. Return structured data with specific numbers and metrics
`, strings.ToUpper(platform), url)
	}

	b.WriteString(`
Return data in a structured JSON format with:
- Platform name
- Specific URLs accessed
- View counts and metrics found
- Data extraction timestamp
- Any errors or issues encountered

Only access the specified dashboard URLs. Do not search for or navigate to other URLs.`)

	return b.String()
}

// BuildActionTask renders a platform action instruction with concrete
// parameter substitution and defaults for missing fields.
func BuildActionTask(platform, action string, data map[string]any) string {
	baseTask := fmt.Sprintf("On %s platform, execute the following action: %s", platform, action)
	if len(data) == 0 {
		return baseTask
	}

	str := func(key, fallback string) string {
		if v, ok := data[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
		return fallback
	}
	list := func(key string, fallback string) string {
		if v, ok := data[key]; ok {
			encoded, err := json.Marshal(v)
			if err == nil {
				return string(encoded)
			}
		}
		return fallback
	}

	switch action {
	case "create_offer":
		return baseTask + fmt.Sprintf(`. Create a new offer with these details:
- Title: %s
- Discount: %s
- Valid until: %s
- Description: %s
- Applicable items: %s`,
			str("title", "Special Offer"),
			str("discount", "10%"),
			str("validUntil", "End of day"),
			str("description", "Limited time offer"),
			list("items", "All items"))

	case "update_timing":
		return baseTask + fmt.Sprintf(`. Update store timings:
- Opening time: %s
- Closing time: %s
- Days: %s
- Special hours: %s`,
			str("openTime", "09:00"),
			str("closeTime", "23:00"),
			str("days", "All days"),
			str("specialHours", "None"))

	case "toggle_status":
		return baseTask + fmt.Sprintf(`. Toggle store status to: %s
- Reason: %s
- Duration: %s`,
			str("status", "online"),
			str("reason", "Manual update"),
			str("duration", "Indefinite"))

	case "update_menu":
		return baseTask + fmt.Sprintf(`. Update menu items:
- Items to add: %s
- Items to remove: %s
- Items to modify: %s
- Category changes: %s`,
			list("addItems", "[]"),
			list("removeItems", "[]"),
			list("modifyItems", "[]"),
			list("categoryChanges", "[]"))

	default:
		encoded, _ := json.Marshal(data)
		return baseTask + fmt.Sprintf(". Additional data: %s", encoded)
	}
}
