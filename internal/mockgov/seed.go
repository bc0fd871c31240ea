package mockgov

// The seeded docket intentionally lists HR 2045 on both surfaces with
// different number formatting, so a mixed query demonstrates cross-source
// dedupe end to end.

func seedFederal() []federalBill {
	return []federalBill{
		{
			Number:           "HR 2045",
			Congress:         119,
			Title:            "Rural Broadband Expansion Act",
			Summary:          "Directs grants for last-mile broadband buildout in underserved counties.",
			Stage:            "introduced",
			Subjects:         []string{"telecommunications", "rural development"},
			IntroducedDate:   "2026-01-14",
			LatestActionDate: "2026-02-02",
			Sponsor:          federalSponsor{BioguideID: "R000123", FullName: "A. Ruiz", Party: "D", Chamber: "House"},
		},
		{
			Number:           "HR 2210",
			Congress:         119,
			Title:            "Small Farm Credit Extension Act",
			Summary:          "Extends guaranteed operating loans for beginning farmers.",
			Stage:            "referred",
			Subjects:         []string{"agriculture", "credit"},
			IntroducedDate:   "2026-01-22",
			LatestActionDate: "2026-01-29",
			Sponsor:          federalSponsor{BioguideID: "K000455", FullName: "J. Keller", Party: "R", Chamber: "House"},
		},
		{
			Number:           "S 311",
			Congress:         119,
			Title:            "Wildfire Resilience Funding Act",
			Summary:          "Funds hazardous fuel reduction on federal and tribal land.",
			Stage:            "reported",
			Subjects:         []string{"forestry", "disaster preparedness"},
			IntroducedDate:   "2025-11-05",
			LatestActionDate: "2026-02-11",
			Sponsor:          federalSponsor{BioguideID: "M000617", FullName: "P. Moreno", Party: "D", Chamber: "Senate"},
		},
		{
			Number:           "HR 1312",
			Congress:         119,
			Title:            "Veterans Telehealth Access Act",
			Summary:          "Makes pandemic-era telehealth flexibilities for veterans permanent.",
			Stage:            "passedHouse",
			Subjects:         []string{"veterans", "health"},
			IntroducedDate:   "2025-09-18",
			LatestActionDate: "2026-01-21",
			Sponsor:          federalSponsor{BioguideID: "T000790", FullName: "S. Tran", Party: "D", Chamber: "House"},
		},
		{
			Number:           "S 88",
			Congress:         119,
			Title:            "Housing Supply Incentive Act",
			Summary:          "Tax credits for conversion of vacant commercial stock to housing.",
			Stage:            "becameLaw",
			Subjects:         []string{"housing", "taxation"},
			IntroducedDate:   "2025-03-04",
			LatestActionDate: "2025-12-19",
			Sponsor:          federalSponsor{BioguideID: "W000229", FullName: "D. Whitfield", Party: "R", Chamber: "Senate"},
		},
		{
			Number:           "HR 877",
			Congress:         119,
			Title:            "Transit Operating Support Act",
			Summary:          "Allows large agencies to use formula funds for operations.",
			Stage:            "died",
			Subjects:         []string{"transportation", "transit"},
			IntroducedDate:   "2025-02-11",
			LatestActionDate: "2025-10-30",
			Sponsor:          federalSponsor{BioguideID: "R000123", FullName: "A. Ruiz", Party: "D", Chamber: "House"},
		},
	}
}

func seedState() []stateBill {
	return []stateBill{
		{
			BillID:         184201,
			Number:         "H.R. 2045",
			Title:          "Rural Broadband Expansion Act",
			Description:    "Companion resolution endorsing the federal broadband buildout program.",
			Status:         1,
			StatusDate:     "2026-01-20",
			IntroducedDate: "2026-01-20",
			LastAction:     "Read first time",
			LastActionDate: "2026-01-20",
			Subjects:       []string{"telecommunications"},
			Sponsor:        stateSponsor{PeopleID: 5521, Name: "M. Okafor", Party: "D", Role: "Rep"},
		},
		{
			BillID:         184466,
			Number:         "SB 101",
			Title:          "Groundwater Rights Adjudication Act",
			Description:    "Streamlines adjudication of contested groundwater basins.",
			Status:         2,
			StatusDate:     "2026-02-03",
			IntroducedDate: "2026-01-08",
			LastAction:     "Referred to Committee on Water",
			LastActionDate: "2026-02-03",
			Subjects:       []string{"water", "agriculture"},
			Sponsor:        stateSponsor{PeopleID: 5533, Name: "L. Vang", Party: "D", Role: "Sen"},
		},
		{
			BillID:         184512,
			Number:         "AB 740",
			Title:          "Community College Textbook Affordability Act",
			Description:    "Funds zero-cost course material pathways at community colleges.",
			Status:         3,
			StatusDate:     "2026-02-10",
			IntroducedDate: "2025-12-02",
			LastAction:     "Passed Assembly, to Senate",
			LastActionDate: "2026-02-10",
			Subjects:       []string{"education"},
			Sponsor:        stateSponsor{PeopleID: 5540, Name: "R. Castillo", Party: "D", Role: "Rep"},
		},
		{
			BillID:         183990,
			Number:         "SB 455",
			Title:          "Wildfire Home Hardening Rebate Act",
			Description:    "Rebates for ember-resistant venting and defensible space work.",
			Status:         5,
			StatusDate:     "2025-10-08",
			IntroducedDate: "2025-02-20",
			LastAction:     "Chaptered by Secretary of State",
			LastActionDate: "2025-10-08",
			Subjects:       []string{"fire prevention", "housing"},
			Sponsor:        stateSponsor{PeopleID: 5533, Name: "L. Vang", Party: "D", Role: "Sen"},
		},
		{
			BillID:         184633,
			Number:         "AB 12",
			Title:          "Night Shift Worker Transit Act",
			Description:    "Requires late-night service planning on state-funded corridors.",
			Status:         7,
			StatusDate:     "2026-01-30",
			IntroducedDate: "2025-12-01",
			LastAction:     "Failed passage in committee",
			LastActionDate: "2026-01-30",
			Subjects:       []string{"transportation", "labor"},
			Sponsor:        stateSponsor{PeopleID: 5548, Name: "T. Nguyen", Party: "R", Role: "Rep"},
		},
	}
}
