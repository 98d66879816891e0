package driver

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocatorString(t *testing.T) {
	assert.Equal(t, "id=lksrch", ID("lksrch").String())
	assert.Equal(t, "name=go", Name("go").String())
	assert.Equal(t, "link text=Fall2024", LinkText("Fall2024").String())
}

func TestLocatorCSSSelector(t *testing.T) {
	tests := []struct {
		loc  Locator
		want string
		ok   bool
	}{
		{ID("campaignScope"), `[id="campaignScope"]`, true},
		{Name("go"), `[name="go"]`, true},
		{CSS("tr.dataRow a"), "tr.dataRow a", true},
		{LinkText("Contacts"), "", false},
		{XPath("//a"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.loc.String(), func(t *testing.T) {
			got, ok := tt.loc.CSSSelector()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocatorXPathExpr(t *testing.T) {
	assert.Equal(t, `//*[@id="lksrch"]`, ID("lksrch").XPathExpr())
	assert.Equal(t, `//a[normalize-space(.)="Contacts"]`, LinkText("Contacts").XPathExpr())
	assert.Equal(t, `//a[normalize-space(.)='say "hi"']`, LinkText(`say "hi"`).XPathExpr())
	assert.Equal(t, `//a[normalize-space(.)=concat("it's ",'"',"x",'"',"")]`, LinkText(`it's "x"`).XPathExpr())
	assert.Equal(t, "//tr/a", XPath("//tr/a").XPathExpr())
}

func TestFrameRefString(t *testing.T) {
	assert.Equal(t, "frame(0)", FrameIndex(0).String())
	assert.Equal(t, "frame(id=searchFrame)", FrameBy(ID("searchFrame")).String())
}

func TestIsAbsence(t *testing.T) {
	assert.True(t, IsAbsence(fmt.Errorf("find %s: %w", ID("x"), ErrNoSuchElement)))
	assert.True(t, IsAbsence(ErrStaleElement))
	assert.True(t, IsAbsence(ErrNoSuchFrame))
	assert.False(t, IsAbsence(ErrDisconnected))
	assert.False(t, IsAbsence(ErrNoSuchWindow))
	assert.False(t, IsAbsence(nil))
}
