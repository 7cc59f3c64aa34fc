package content

// stopwords only needs words longer than three characters; shorter tokens
// are dropped before lookup.
var stopwords = map[string]struct{}{
	"about": {}, "above": {}, "after": {}, "again": {}, "against": {}, "also": {},
	"although": {}, "among": {}, "another": {}, "because": {}, "been": {}, "before": {},
	"being": {}, "below": {}, "between": {}, "both": {}, "cannot": {}, "could": {},
	"does": {}, "doing": {}, "down": {}, "during": {}, "each": {}, "either": {},
	"else": {}, "even": {}, "ever": {}, "every": {}, "from": {}, "further": {},
	"have": {}, "having": {}, "here": {}, "hers": {}, "herself": {}, "himself": {},
	"however": {}, "into": {}, "itself": {}, "just": {}, "like": {}, "many": {},
	"more": {}, "most": {}, "much": {}, "must": {}, "myself": {}, "neither": {},
	"never": {}, "only": {}, "other": {}, "ours": {}, "ourselves": {}, "over": {},
	"same": {}, "shall": {}, "should": {}, "since": {}, "some": {}, "such": {},
	"than": {}, "that": {}, "their": {}, "theirs": {}, "them": {}, "themselves": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"through": {}, "thus": {}, "under": {}, "until": {}, "upon": {}, "very": {},
	"well": {}, "were": {}, "what": {}, "when": {}, "where": {}, "whether": {},
	"which": {}, "while": {}, "whom": {}, "whose": {}, "will": {}, "with": {},
	"within": {}, "without": {}, "would": {}, "your": {}, "yours": {}, "yourself": {},
	"yourselves": {},
}
