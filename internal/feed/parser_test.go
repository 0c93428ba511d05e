package feed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/regintake/internal/feed"
)

func TestParse_BasicRSS(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>FTC Press Releases</title>
    <item>
      <title>Commission Announces Settlement</title>
      <link>https://www.ftc.gov/news/press-releases/2024/01/settlement</link>
      <guid>https://www.ftc.gov/news/press-releases/2024/01/settlement</guid>
      <pubDate>Tue, 02 Jan 2024 15:04:05 GMT</pubDate>
      <description>The Commission announced a settlement today.</description>
      <category>Enforcement</category>
      <category>Consumer Protection</category>
    </item>
  </channel>
</rss>`

	candidates, err := feed.Parse(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "Commission Announces Settlement", c.Title)
	assert.Equal(t, "https://www.ftc.gov/news/press-releases/2024/01/settlement", c.Link)
	assert.Equal(t, "Tue, 02 Jan 2024 15:04:05 GMT", c.PubDate)
	assert.Equal(t, "The Commission announced a settlement today.", c.Description)
	assert.Equal(t, []string{"Enforcement", "Consumer Protection"}, c.Categories)
	require.NotNil(t, c.PublishedAt)
	assert.Equal(t, 2024, c.PublishedAt.Year())
}

func TestParse_CDATAAndEntities(t *testing.T) {
	body := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <item>
      <title><![CDATA[FTC & SEC Joint Statement]]></title>
      <link>https://www.ftc.gov/news/joint-statement</link>
    </item>
    <item>
      <title>Fraud &amp; Abuse Advisory</title>
      <link>https://www.ftc.gov/news/advisory</link>
    </item>
  </channel>
</rss>`

	candidates, err := feed.Parse(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "FTC & SEC Joint Statement", candidates[0].Title)
	assert.Equal(t, "Fraud & Abuse Advisory", candidates[1].Title)
}

func TestParse_WhitespaceAroundLink(t *testing.T) {
	body := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <item>
      <title>  Padded Title  </title>
      <link>
        https://www.ftc.gov/news/padded
      </link>
    </item>
  </channel>
</rss>`

	candidates, err := feed.Parse(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, "Padded Title", candidates[0].Title)
	assert.Equal(t, "https://www.ftc.gov/news/padded", candidates[0].Link)
}

func TestParse_DropsEntriesMissingTitleOrLink(t *testing.T) {
	body := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <item>
      <title>First</title>
      <link>https://www.ftc.gov/news/first</link>
    </item>
    <item>
      <title>No Link Here</title>
    </item>
    <item>
      <link>https://www.ftc.gov/news/untitled</link>
    </item>
    <item>
      <title>Last</title>
      <link>https://www.ftc.gov/news/last</link>
    </item>
  </channel>
</rss>`

	candidates, err := feed.Parse(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// Surviving entries keep document order.
	assert.Equal(t, "First", candidates[0].Title)
	assert.Equal(t, "Last", candidates[1].Title)
}

func TestParse_EmptyChannel(t *testing.T) {
	body := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Empty Feed</title>
  </channel>
</rss>`

	candidates, err := feed.Parse(context.Background(), body)
	require.NoError(t, err)

	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)
}

func TestParse_MissingPubDate(t *testing.T) {
	body := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <item>
      <title>Undated</title>
      <link>https://www.ftc.gov/news/undated</link>
    </item>
  </channel>
</rss>`

	candidates, err := feed.Parse(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Empty(t, candidates[0].PubDate)
	assert.Nil(t, candidates[0].PublishedAt)
}

func TestParse_InvalidXML(t *testing.T) {
	_, err := feed.Parse(context.Background(), "this is not a feed")
	require.Error(t, err)

	var parseErr *feed.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParse_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := feed.Parse(ctx, "<rss/>")
	assert.ErrorIs(t, err, context.Canceled)
}
