package analytics

var englishStopwords = []string{
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an",
	"and", "any", "are", "aren't", "as", "at", "be", "because", "been", "before",
	"being", "below", "between", "both", "but", "by", "can", "can't", "cannot", "com",
	"could", "couldn't", "did", "didn't", "do", "does", "doesn't", "doing", "don't", "down",
	"during", "each", "else", "ever", "few", "for", "from", "further", "get", "had",
	"hadn't", "has", "hasn't", "have", "haven't", "having", "he", "he'd", "he'll", "hence",
	"her", "here", "hers", "herself", "him", "himself", "his", "how", "however", "http",
	"i", "i'd", "i'll", "i'm", "i've", "if", "in", "into", "is", "isn't",
	"it", "its", "itself", "just", "k", "like", "me", "more", "most", "mustn't",
	"my", "myself", "no", "nor", "not", "of", "off", "on", "once", "only",
	"or", "other", "otherwise", "ought", "our", "ours", "ourselves", "out", "over", "own",
	"r", "same", "shall", "shan't", "she", "she'd", "she'll", "should", "shouldn't", "since",
	"so", "some", "such", "than", "that", "the", "their", "theirs", "them", "themselves",
	"then", "there", "therefore", "these", "they", "they'd", "they'll", "they're", "they've", "this",
	"those", "through", "to", "too", "under", "until", "up", "very", "was", "wasn't",
	"we", "we'd", "we'll", "we're", "we've", "were", "weren't", "what", "when", "where",
	"which", "while", "who", "whom", "why", "with", "won't", "would", "wouldn't", "www",
	"you", "you'd", "you'll", "you're", "you've", "your", "yours", "yourself", "yourselves",
}

// Common title words are kept in the title cloud.
var titleKeep = []string{"the", "a", "and", "in", "is", "of", "to"}

// AuthorStopwords returns the full English stopword set.
func AuthorStopwords() map[string]struct{} {
	set := make(map[string]struct{}, len(englishStopwords))
	for _, w := range englishStopwords {
		set[w] = struct{}{}
	}
	return set
}

// TitleStopwords returns the English stopwords minus a few words that carry
// meaning in book titles.
func TitleStopwords() map[string]struct{} {
	set := AuthorStopwords()
	for _, w := range titleKeep {
		delete(set, w)
	}
	return set
}
