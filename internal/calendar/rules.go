package calendar

// Built-in rule sets. CN dates follow the State Council holiday notices,
// including the compensating weekend workdays. US covers federal holidays
// (observed dates).
func builtinRuleSets() []RuleSet {
	return []RuleSet{
		{
			Country: "CN",
			National: map[string]string{
				"2025-01-01": "New Year's Day",
				"2025-01-28": "Spring Festival",
				"2025-01-29": "Spring Festival",
				"2025-01-30": "Spring Festival",
				"2025-01-31": "Spring Festival",
				"2025-02-03": "Spring Festival",
				"2025-02-04": "Spring Festival",
				"2025-04-04": "Qingming Festival",
				"2025-05-01": "Labour Day",
				"2025-05-02": "Labour Day",
				"2025-05-05": "Labour Day",
				"2025-06-02": "Dragon Boat Festival",
				"2025-10-01": "National Day",
				"2025-10-02": "National Day",
				"2025-10-03": "National Day",
				"2025-10-06": "Mid-Autumn Festival",
				"2025-10-07": "National Day",
				"2025-10-08": "National Day",
				"2026-01-01": "New Year's Day",
				"2026-02-16": "Spring Festival",
				"2026-02-17": "Spring Festival",
				"2026-02-18": "Spring Festival",
				"2026-02-19": "Spring Festival",
				"2026-02-20": "Spring Festival",
				"2026-04-06": "Qingming Festival",
				"2026-05-01": "Labour Day",
				"2026-05-04": "Labour Day",
				"2026-05-05": "Labour Day",
				"2026-06-19": "Dragon Boat Festival",
				"2026-09-25": "Mid-Autumn Festival",
				"2026-10-01": "National Day",
				"2026-10-02": "National Day",
				"2026-10-05": "National Day",
				"2026-10-06": "National Day",
				"2026-10-07": "National Day",
			},
			WorkdaySwaps: map[string]string{
				"2025-01-26": "Spring Festival swap",
				"2025-02-08": "Spring Festival swap",
				"2025-04-27": "Labour Day swap",
				"2025-09-28": "National Day swap",
				"2025-10-11": "National Day swap",
				"2026-02-14": "Spring Festival swap",
				"2026-02-22": "Spring Festival swap",
				"2026-09-27": "National Day swap",
				"2026-10-10": "National Day swap",
			},
		},
		{
			Country: "US",
			National: map[string]string{
				"2025-01-01": "New Year's Day",
				"2025-01-20": "Martin Luther King Jr. Day",
				"2025-02-17": "Washington's Birthday",
				"2025-05-26": "Memorial Day",
				"2025-06-19": "Juneteenth",
				"2025-07-04": "Independence Day",
				"2025-09-01": "Labor Day",
				"2025-10-13": "Columbus Day",
				"2025-11-11": "Veterans Day",
				"2025-11-27": "Thanksgiving Day",
				"2025-12-25": "Christmas Day",
				"2026-01-01": "New Year's Day",
				"2026-01-19": "Martin Luther King Jr. Day",
				"2026-02-16": "Washington's Birthday",
				"2026-05-25": "Memorial Day",
				"2026-06-19": "Juneteenth",
				"2026-07-03": "Independence Day (observed)",
				"2026-09-07": "Labor Day",
				"2026-10-12": "Columbus Day",
				"2026-11-11": "Veterans Day",
				"2026-11-26": "Thanksgiving Day",
				"2026-12-25": "Christmas Day",
			},
		},
	}
}
