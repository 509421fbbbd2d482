package asr

import (
	"testing"
)

const samplePayload = `{
  "audio_info": {"duration": 62500},
  "result": {
    "text": "你好。今天天气不错。",
    "utterances": [
      {
        "text": "今天天气不错。",
        "start_time": 2000,
        "end_time": 3800,
        "additions": {"speaker": "2", "gender": "female", "emotion": "neutral"},
        "words": [
          {"text": "今天", "start_time": 2000, "end_time": 2400},
          {"text": "天气", "start_time": 2450, "end_time": 2900},
          {"text": "不错", "start_time": 2950, "end_time": 3800}
        ]
      },
      {
        "text": "你好。",
        "start_time": 100,
        "end_time": 800,
        "additions": {"speaker": "1", "gender": "male"},
        "words": [
          {"text": "你好", "start_time": 100, "end_time": 800}
        ]
      }
    ]
  }
}`

func TestParseOrdersByStartAndReadsAdditions(t *testing.T) {
	tr, err := Parse([]byte(samplePayload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tr.DurationMS != 62500 {
		t.Errorf("duration = %d", tr.DurationMS)
	}
	if len(tr.Utterances) != 2 {
		t.Fatalf("utterances = %d, want 2", len(tr.Utterances))
	}
	first := tr.Utterances[0]
	if first.StartMS != 100 || first.Speaker != "1" || first.Gender != "male" {
		t.Errorf("first utterance = %+v", first)
	}
	second := tr.Utterances[1]
	if second.Speaker != "2" || second.Gender != "female" || second.Emotion != "neutral" {
		t.Errorf("second utterance = %+v", second)
	}
	if len(second.Words) != 3 {
		t.Errorf("words = %d, want 3", len(second.Words))
	}
}

func TestParseWordLevelSpeaker(t *testing.T) {
	payload := `{
	  "result": {
	    "utterances": [
	      {
	        "text": "好的我走了",
	        "start_time": 0,
	        "end_time": 1500,
	        "additions": {"speaker": "1", "gender": "male"},
	        "words": [
	          {"text": "好的", "start_time": 0, "end_time": 500},
	          {"text": "我走了", "start_time": 600, "end_time": 1500, "additions": {"speaker": "2"}}
	        ]
	      }
	    ]
	  }
	}`
	tr, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	words := tr.Utterances[0].Words
	if len(words) != 2 {
		t.Fatalf("words = %d, want 2", len(words))
	}
	// Unlabeled words inherit the utterance speaker; labeled ones keep their
	// own.
	if words[0].Speaker != "1" {
		t.Errorf("first word speaker = %q, want 1", words[0].Speaker)
	}
	if words[1].Speaker != "2" {
		t.Errorf("second word speaker = %q, want 2", words[1].Speaker)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Error("expected parse error")
	}
}

func TestNormalizeGender(t *testing.T) {
	cases := map[string]string{
		"male": "male", "M": "male", "Female": "female", "f": "female",
		"": "unknown", "robot": "unknown",
	}
	for in, want := range cases {
		if got := normalizeGender(in); got != want {
			t.Errorf("normalizeGender(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSpeakerGendersMajorityVote(t *testing.T) {
	tr := &Transcript{Utterances: []Utterance{
		{Speaker: "1", Gender: "male"},
		{Speaker: "1", Gender: "male"},
		{Speaker: "1", Gender: "female"},
		{Speaker: "2", Gender: "unknown"},
		{Speaker: "3", Gender: "male"},
		{Speaker: "3", Gender: "female"},
	}}
	genders := tr.SpeakerGenders()
	if genders["1"] != "male" {
		t.Errorf("speaker 1 = %q, want male", genders["1"])
	}
	if genders["2"] != "unknown" {
		t.Errorf("speaker 2 = %q, want unknown", genders["2"])
	}
	if genders["3"] != "unknown" {
		t.Errorf("tied speaker 3 = %q, want unknown", genders["3"])
	}
}

func TestAttachPunctuation(t *testing.T) {
	u := Utterance{
		Text: "你好，世界。再见！",
		Words: []Word{
			{Text: "你好", StartMS: 0, EndMS: 300},
			{Text: "世界", StartMS: 350, EndMS: 700},
			{Text: "再见", StartMS: 800, EndMS: 1100},
		},
	}
	words := AttachPunctuation(u)
	want := []string{"你好，", "世界。", "再见！"}
	for i, w := range words {
		if w.Text != want[i] {
			t.Errorf("word %d = %q, want %q", i, w.Text, want[i])
		}
	}
	// Timings never change.
	if words[0].StartMS != 0 || words[0].EndMS != 300 {
		t.Errorf("timing changed: %+v", words[0])
	}
	// Original words untouched.
	if u.Words[0].Text != "你好" {
		t.Errorf("input mutated: %q", u.Words[0].Text)
	}
}

func TestAttachPunctuationUnlocatableWord(t *testing.T) {
	u := Utterance{
		Text:  "完全不同的文本",
		Words: []Word{{Text: "你好", StartMS: 0, EndMS: 100}},
	}
	words := AttachPunctuation(u)
	if words[0].Text != "你好" {
		t.Errorf("word = %q, want unchanged", words[0].Text)
	}
}

func TestEndsSentence(t *testing.T) {
	cases := map[string]bool{
		"不错。": true, "hello.": true, "what?": true, "你好，": false,
		"word": false, "": false, "好！": true,
	}
	for in, want := range cases {
		if got := EndsSentence(in); got != want {
			t.Errorf("EndsSentence(%q) = %v, want %v", in, got, want)
		}
	}
}
