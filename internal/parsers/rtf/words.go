package rtf

// destinations whose groups carry no document text
var skippedDestinations = map[string]bool{
	"fonttbl":            true,
	"colortbl":           true,
	"stylesheet":         true,
	"listtable":          true,
	"listoverridetable":  true,
	"revtbl":             true,
	"rsidtbl":            true,
	"filetbl":            true,
	"pict":               true,
	"object":             true,
	"objdata":            true,
	"header":             true,
	"headerl":            true,
	"headerr":            true,
	"headerf":            true,
	"footer":             true,
	"footerl":            true,
	"footerr":            true,
	"footerf":            true,
	"fldinst":            true,
	"generator":          true,
	"xmlnstbl":           true,
	"themedata":          true,
	"colorschememapping": true,
	"datastore":          true,
	"latentstyles":       true,
	"pgdsctbl":           true,
	"bkmkstart":          true,
	"bkmkend":            true,
	"private":            true,
}

// infoFields maps \info subgroups to metadata keys
var infoFields = map[string]string{
	"title":    "title",
	"author":   "author",
	"subject":  "subject",
	"keywords": "keywords",
	"doccomm":  "description",
	"company":  "company",
	"manager":  "manager",
	"category": "category",
	"operator": "last_modified_by",
}

// infoDates are \info subgroups holding \yr \mo \dy \hr \min values
var infoDates = map[string]string{
	"creatim": "date",
	"revtim":  "modified_at",
	"printim": "printed_at",
}

// specialChars are control words that stand for a single character
var specialChars = map[string]string{
	"emdash":    "—",
	"endash":    "–",
	"bullet":    "•",
	"lquote":    "‘",
	"rquote":    "’",
	"ldblquote": "“",
	"rdblquote": "”",
	"emspace":   " ",
	"enspace":   " ",
	"qmspace":   " ",
	"zwj":       "",
	"zwnj":      "",
}

// breaks separate words without emitting text
var breaks = map[string]bool{
	"par":  true,
	"line": true,
	"tab":  true,
	"sect": true,
	"page": true,
}
