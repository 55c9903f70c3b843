package merchpilot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLoginTask(t *testing.T) {
	creds := LoginCredentials{Platform: "swiggy", Username: "owner@example.com", Password: "hunter2"}

	task := BuildLoginTask(creds)
	assert.Contains(t, task, "https://partner.swiggy.com/login")
	assert.Contains(t, task, "owner@example.com")
	assert.Contains(t, task, "hunter2")
	assert.Contains(t, task, "check if already logged in")

	// Deterministic: identical input, byte-identical output.
	assert.Equal(t, task, BuildLoginTask(creds))
}

func TestBuildLoginTaskOverrideURL(t *testing.T) {
	task := BuildLoginTask(LoginCredentials{
		Platform: "swiggy",
		Username: "u",
		Password: "p",
		URL:      "https://example.com/custom-login",
	})
	assert.Contains(t, task, "https://example.com/custom-login")
	assert.NotContains(t, task, "partner.swiggy.com")
}

func TestBuildStatusCheckTask(t *testing.T) {
	task := BuildStatusCheckTask("zomato", "")
	assert.Contains(t, task, "https://www.zomato.com/partner/dashboard")
	assert.Contains(t, task, "check current login status")
	assert.Equal(t, task, BuildStatusCheckTask("zomato", ""))
}

func TestBuildDataExtractionTask(t *testing.T) {
	tests := []struct {
		name        string
		platform    string
		dataType    string
		filters     map[string]any
		contains    []string
		notContains []string
	}{
		{
			name:     "swiggy ratings includes ratings checklist only",
			platform: "swiggy",
			dataType: "ratings",
			contains: []string{
				"https://partner.swiggy.com/dashboard",
				"Current overall rating",
			},
			notContains: []string{
				"Order counts and trends",
				"Extract menu information",
			},
		},
		{
			name:     "orders with filters embeds the filter JSON",
			platform: "zomato",
			dataType: "orders",
			filters:  map[string]any{"since": "yesterday"},
			contains: []string{
				"https://www.zomato.com/partner/dashboard",
				"Order counts and trends",
				`Apply filters: {"since":"yesterday"}`,
			},
		},
		{
			name:     "unknown data type falls back to a generic checklist",
			platform: "magicpin",
			dataType: "payouts",
			contains: []string{"Extract available information of type: payouts"},
		},
		{
			name:     "unsupported platform yields an explicit error instruction",
			platform: "ubereats",
			dataType: "orders",
			contains: []string{"Error: Unsupported platform ubereats"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := BuildDataExtractionTask(tt.platform, tt.dataType, tt.filters)
			for _, want := range tt.contains {
				assert.Contains(t, task, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, task, unwanted)
			}
			assert.Equal(t, task, BuildDataExtractionTask(tt.platform, tt.dataType, tt.filters))
		})
	}
}

func TestBuildMultiPlatformExtractionTask(t *testing.T) {
	req := DataExtractionRequest{
		Platforms: []string{"swiggy", "zomato"},
		DataTypes: []string{"ratings"},
	}

	task := BuildMultiPlatformExtractionTask(req)
	assert.Contains(t, task, "https://partner.swiggy.com/dashboard")
	assert.Contains(t, task, "https://www.zomato.com/partner/dashboard")
	assert.Contains(t, task, "Current overall rating for each platform")
	assert.Contains(t, task, "For SWIGGY:")
	assert.Contains(t, task, "For ZOMATO:")
	assert.NotContains(t, task, "Revenue figures and transaction data")
	assert.NotContains(t, task, "Menu item availability status")

	assert.Equal(t, task, BuildMultiPlatformExtractionTask(req))
}

func TestBuildMultiPlatformExtractionTaskEmpty(t *testing.T) {
	task := BuildMultiPlatformExtractionTask(DataExtractionRequest{})
	assert.Equal(t, "No platforms specified for data extraction", task)
}

func TestBuildActionTask(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		data     map[string]any
		contains []string
	}{
		{
			name:     "no data yields the bare action instruction",
			action:   "toggle_status",
			data:     nil,
			contains: []string{"On swiggy platform, execute the following action: toggle_status"},
		},
		{
			name:   "create_offer substitutes defaults for missing fields",
			action: "create_offer",
			data:   map[string]any{"title": "Weekend Special"},
			contains: []string{
				"Title: Weekend Special",
				"Discount: 10%",
				"Valid until: End of day",
				"Applicable items: All items",
			},
		},
		{
			name:   "update_timing defaults",
			action: "update_timing",
			data:   map[string]any{"days": "Weekdays"},
			contains: []string{
				"Opening time: 09:00",
				"Closing time: 23:00",
				"Days: Weekdays",
				"Special hours: None",
			},
		},
		{
			name:   "toggle_status defaults to online",
			action: "toggle_status",
			data:   map[string]any{"reason": "Kitchen maintenance"},
			contains: []string{
				"Toggle store status to: online",
				"Reason: Kitchen maintenance",
				"Duration: Indefinite",
			},
		},
		{
			name:   "update_menu encodes item lists",
			action: "update_menu",
			data:   map[string]any{"addItems": []string{"Paneer Roll"}},
			contains: []string{
				`Items to add: ["Paneer Roll"]`,
				"Items to remove: []",
			},
		},
		{
			name:     "unknown action carries the raw data bag",
			action:   "run_campaign",
			data:     map[string]any{"budget": "500"},
			contains: []string{`Additional data: {"budget":"500"}`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := BuildActionTask("swiggy", tt.action, tt.data)
			for _, want := range tt.contains {
				assert.Contains(t, task, want)
			}
			assert.Equal(t, task, BuildActionTask("swiggy", tt.action, tt.data))
		})
	}
}

func TestPlatformURLTables(t *testing.T) {
	require.Equal(t, "https://partner.swiggy.com/login", LoginURL("Swiggy"))
	require.Equal(t, "https://magicpin.in/partners/dashboard", DashboardURL("MAGICPIN"))
	require.Empty(t, LoginURL("doordash"))
}
