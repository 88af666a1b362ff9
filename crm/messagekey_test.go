package crm_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/inboxcrm/connector/crm"
	"github.com/stretchr/testify/require"
)

func TestNormalizeInternetMessageID(t *testing.T) {
	require.Equal(t, "msgid@example.com", crm.NormalizeInternetMessageID("<MsgId@Example.COM>"))
	require.Equal(t, "msgid@example.com", crm.NormalizeInternetMessageID("msgid@example.com"))
	require.Equal(t, "abc@mail", crm.NormalizeInternetMessageID(" <abc@mail>\r\n"))
	require.Equal(t, "", crm.NormalizeInternetMessageID(""))
	require.Equal(t, "", crm.NormalizeInternetMessageID("<  >"))
}

func TestNormalizeInternetMessageIDIdempotent(t *testing.T) {
	once := crm.NormalizeInternetMessageID("<MsgId@Example.COM>")
	require.Equal(t, once, crm.NormalizeInternetMessageID(once))
}

func TestNormalizeInternetMessageIDCapsLength(t *testing.T) {
	long := strings.Repeat("a", 400) + "@example.com"
	key := crm.NormalizeInternetMessageID(long)
	require.Len(t, key, 190)
	require.Equal(t, key, crm.NormalizeInternetMessageID(key))
}

func TestNormalizeInternetMessageIDCapsOnRuneBoundary(t *testing.T) {
	// 1 + 240 bytes; a plain byte cap at 190 would split the 95th "é".
	long := "a" + strings.Repeat("é", 120)
	key := crm.NormalizeInternetMessageID(long)
	require.True(t, utf8.ValidString(key))
	require.Len(t, key, 189)
	require.Equal(t, key, crm.NormalizeInternetMessageID(key))
}
