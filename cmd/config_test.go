package cmd

import (
	"reflect"
	"testing"

	"github.com/spf13/viper"
)

func TestConfigList(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("favorites", "Mark Normand, Sam Morril,,")
	got := configList("favorites")
	expect := []string{"Mark Normand", "Sam Morril"}
	if !reflect.DeepEqual(got, expect) {
		t.Fatalf("unexpected list.\nwant: %#v\ngot:  %#v", expect, got)
	}

	viper.Set("favorites", []string{"Chris Rock", "Larry David"})
	got = configList("favorites")
	expect = []string{"Chris Rock", "Larry David"}
	if !reflect.DeepEqual(got, expect) {
		t.Fatalf("unexpected list.\nwant: %#v\ngot:  %#v", expect, got)
	}

	fav := favoritesFromConfig()
	if !fav.Contains("Larry David") || fav.Contains("larry david") {
		t.Fatalf("favorites = %v", fav)
	}
}
