package selector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{
			"equality",
			"color = 'red'",
			`{'=',{'ident',"color"},"red"}`,
		},
		{
			"priority comparison",
			"JMSPriority > 6",
			`{'>',{'ident',"JMSPriority"},6}`,
		},
		{
			"and binds tighter than or",
			"a AND b OR c",
			`{'or',{'and',{'ident',"a"},{'ident',"b"}},{'ident',"c"}}`,
		},
		{
			"parentheses override precedence",
			"(a OR b) AND c",
			`{'and',{'or',{'ident',"a"},{'ident',"b"}},{'ident',"c"}}`,
		},
		{
			"lower-case keywords",
			"a and not b",
			`{'and',{'ident',"a"},{'not',{'ident',"b"}}}`,
		},
		{
			"between",
			"price BETWEEN 10 AND 20",
			`{'between',{'ident',"price"},10,20}`,
		},
		{
			"not between",
			"price NOT BETWEEN 10 AND 20",
			`{'not',{'between',{'ident',"price"},10,20}}`,
		},
		{
			"in list",
			"country IN ('UK', 'US')",
			`{'in',{'ident',"country"},["UK","US"]}`,
		},
		{
			"not in",
			"country NOT IN ('UK')",
			`{'not',{'in',{'ident',"country"},["UK"]}}`,
		},
		{
			"like without escape",
			"name LIKE 'Jo%'",
			`{'like',{'ident',"name"},"Jo%",no_escape}`,
		},
		{
			"like with escape",
			"amount LIKE '100!%' ESCAPE '!'",
			`{'like',{'ident',"amount"},"100!%","!"}`,
		},
		{
			"is null",
			"owner IS NULL",
			`{'is_null',{'ident',"owner"}}`,
		},
		{
			"is not null",
			"owner IS NOT NULL",
			`{'not',{'is_null',{'ident',"owner"}}}`,
		},
		{
			"arithmetic precedence",
			"a + 2 * b > 10",
			`{'>',{'+',{'ident',"a"},{'*',2,{'ident',"b"}}},10}`,
		},
		{
			"unary minus",
			"-x < 0",
			`{'<',{'-',{'ident',"x"}},0}`,
		},
		{
			"float literal",
			"weight >= 1.5",
			`{'>=',{'ident',"weight"},1.5}`,
		},
		{
			"doubled quote escapes",
			"label = 'it''s'",
			`{'=',{'ident',"label"},"it's"}`,
		},
		{
			"boolean literal",
			"TRUE",
			`true`,
		},
		{
			"not equal on typed header",
			"JMSDeliveryMode <> 'PERSISTENT'",
			`{'<>',{'ident',"JMSDeliveryMode"},"PERSISTENT"}`,
		},
		{
			"timestamp arithmetic",
			"JMSTimestamp + 1000 > 0",
			`{'>',{'+',{'ident',"JMSTimestamp"},1000},0}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compile(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"dangling comparison", "color = "},
		{"unterminated string", "color = 'red"},
		{"trailing input", "a = 1 b"},
		{"between without and", "price BETWEEN 1, 2"},
		{"in without parens", "country IN 'UK'"},
		{"in with trailing comma", "country IN ('UK',)"},
		{"like with number pattern", "name LIKE 5"},
		{"multi-character escape", "name LIKE 'x' ESCAPE 'ab'"},
		{"is without null", "owner IS"},
		{"is null on literal", "1 IS NULL"},
		{"unclosed paren", "(a = 1"},
		{"stray character", "a = @"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr)
			require.Error(t, err)
			var synErr *SyntaxError
			assert.True(t, errors.As(err, &synErr), "want SyntaxError, got %v", err)
		})
	}
}

func TestCompileTypeErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"like on arithmetic header", "JMSPriority LIKE '5'"},
		{"ordering on string header", "JMSMessageID < 'a'"},
		{"string header against number", "JMSType > 5"},
		{"literal type clash", "5 = 'x'"},
		{"in on arithmetic header", "JMSPriority IN ('a')"},
		{"not on arithmetic", "NOT JMSPriority"},
		{"non-boolean root", "JMSPriority"},
		{"arithmetic on string header", "JMSType + 1 > 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr)
			require.Error(t, err)
			var typeErr *TypeError
			assert.True(t, errors.As(err, &typeErr), "want TypeError, got %v", err)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("color = 'red' AND JMSPriority > 6"))
	assert.Error(t, Validate("color = "))
}
