package entity

// stopWords excludes common capitalized English words from name detection:
// weekdays, months, honorifics, and geographic/organizational prefixes that
// would otherwise register as a 2-4 word "name" run.
var stopWords = buildStopWordSet([]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
	"January", "February", "March", "April", "May", "June", "July", "August",
	"September", "October", "November", "December",
	"Mr", "Mrs", "Ms", "Dr", "Prof", "Sir", "Madam", "Rev", "Hon", "Esq",
	"North", "South", "East", "West", "Northeast", "Northwest", "Southeast", "Southwest",
	"United", "States", "America", "County", "City", "State", "Street", "Avenue",
	"Road", "Boulevard", "Court", "Department", "Office", "Division", "Bureau",
	"Agency", "Committee", "Commission", "Board", "Council", "Congress", "Senate",
	"House", "Government", "Federal", "National", "International", "Company",
	"Corporation", "Incorporated", "Limited", "Incorporation", "Group", "Incorporated.",
	"The", "This", "That", "These", "Those", "There", "Here", "When", "Where",
	"What", "Which", "Who", "Whom", "Why", "How", "Please", "Thank", "Dear",
	"Sincerely", "Regards", "Attention", "Re", "Subject", "From", "To", "Cc", "Bcc",
	"Exhibit", "Appendix", "Attachment", "Schedule", "Section", "Chapter", "Article",
	"Page", "Volume", "Part", "Annex", "Figure", "Table",
	"January.", "February.", "March.",
	"Inc", "Corp", "LLC", "LLP", "Ltd", "Co",
	"January,", "February,",
	"New", "Old", "Great", "Little", "Upper", "Lower",
	"First", "Second", "Third", "Fourth", "Fifth", "Last", "Next", "Previous",
	"All", "Any", "Some", "None", "Each", "Every", "Both", "Either", "Neither",
	"January", "He", "She", "It", "They", "We", "You", "I",
	"Jan", "Feb", "Mar", "Apr", "Jun", "Jul", "Aug", "Sep", "Sept", "Oct", "Nov", "Dec",
	"American", "Federal", "Bureau", "Investigation", "Justice", "Court", "Judge",
	"Attorney", "General", "Plaintiff", "Defendant", "Witness", "Case", "Docket",
	"Summary", "Report", "Memorandum", "Memo", "Notice", "Order", "Motion", "Brief",
	"United", "Kingdom", "Island", "Islands", "River", "Lake", "Mountain", "Valley",
	"Hotel", "Airport", "Hospital", "School", "University", "College", "Institute",
	"Confidential", "Privileged", "Draft", "Final", "Copy", "Original", "Enclosure",
	"Yours", "Truly", "Faithfully", "Best", "Kind", "Warm",
	"January's", "Today", "Yesterday", "Tomorrow", "Now", "Then", "Soon", "Later",
})

func buildStopWordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func isStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}
