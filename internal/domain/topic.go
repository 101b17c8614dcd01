package domain

// Record store table names.
const (
	TableTopics    = "topics"
	TableSubTopics = "sub_topics"
	TableContents  = "contents"
)

// SubTopic is a leaf of the navigation tree; its document lives in the
// contents table keyed by the subtopic id.
type SubTopic struct {
	ID       string `json:"id"`
	TopicID  string `json:"topicId"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// Topic is a top-level navigation node. Position is persisted (topics are
// fetched pre-sorted), unlike block/section order which is carried by slice
// order alone.
type Topic struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Icon      string     `json:"icon"`
	Position  int        `json:"position"`
	SubTopics []SubTopic `json:"subTopics"`
}

func (t Topic) Clone() Topic {
	c := t
	if t.SubTopics != nil {
		c.SubTopics = make([]SubTopic, len(t.SubTopics))
		copy(c.SubTopics, t.SubTopics)
	}
	return c
}
