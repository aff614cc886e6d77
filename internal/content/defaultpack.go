package content

// defaultManifest is the builtin core pack. It merges first, so user
// packs can override any of it by declaring override intent.
const defaultManifest = `
pack_info:
  id: core
  name_key: pack.core.name
  desc_key: pack.core.desc

tuning:
  hand_size: 5
  base_energy: 3
  escape_chance: 0.5
  bias_min: -3.0
  bias_max: 3.0
  bias_step: 0.5
  rest_heal_pct: 0.3
  chapters: 5
  normal_rarity: {common: 0.70, uncommon: 0.25, rare: 0.05}
  elite_rarity: {common: 0.45, uncommon: 0.40, rare: 0.15}
  boss_rarity: {common: 0.10, uncommon: 0.50, rare: 0.40}

cards:
  - id: strike
    type: attack
    cost: 1
    rarity: common
    upgrade_id: strike_plus
    effects:
      - {type: damage, value: 6, target: enemy}
  - id: strike_plus
    type: attack
    cost: 1
    rarity: common
    effects:
      - {type: damage, value: 9, target: enemy}
  - id: defend
    type: skill
    cost: 1
    rarity: common
    upgrade_id: defend_plus
    effects:
      - {type: block, value: 5, target: self}
  - id: defend_plus
    type: skill
    cost: 1
    rarity: common
    effects:
      - {type: block, value: 8, target: self}
  - id: hotfix
    type: attack
    cost: 0
    rarity: common
    effects:
      - {type: damage, value: 3, target: enemy}
  - id: quick_patch
    type: skill
    cost: 1
    rarity: common
    effects:
      - {type: heal, value: 4, target: self}
  - id: lint_pass
    type: skill
    cost: 1
    rarity: common
    effects:
      - {type: block, value: 3, target: self}
      - {type: draw, value: 1, target: self}
  - id: rubber_duck
    type: skill
    cost: 0
    rarity: common
    effects:
      - {type: energy, value: 1, target: self}
  - id: debug_strike
    type: attack
    cost: 1
    rarity: uncommon
    tags: [debug]
    effects:
      - {type: damage, value: 8, target: enemy}
      - {type: status, value: 0, target: enemy, status_id: vulnerable, stacks: 1}
  - id: stack_trace
    type: skill
    cost: 1
    rarity: uncommon
    effects:
      - {type: draw, value: 2, target: self}
  - id: breakpoint
    type: skill
    cost: 1
    rarity: uncommon
    effects:
      - {type: status, value: 0, target: enemy, status_id: weak, stacks: 2}
  - id: git_blame
    type: attack
    cost: 2
    rarity: uncommon
    effects:
      - {type: damage, value: 10, target: enemy}
      - {type: status, value: 0, target: enemy, status_id: vulnerable, stacks: 2}
  - id: refactor_sweep
    type: attack
    cost: 2
    rarity: uncommon
    tags: [refactor]
    effects:
      - {type: damage, value: 7, target: enemy}
      - {type: block, value: 5, target: self}
  - id: force_push
    type: attack
    cost: 3
    rarity: rare
    effects:
      - {type: damage, value: 24, target: enemy}
  - id: rollback
    type: skill
    cost: 2
    rarity: rare
    effects:
      - {type: heal, value: 8, target: self}
      - {type: block, value: 8, target: self}
  - id: pair_programming
    type: power
    cost: 2
    rarity: rare
    effects:
      - {type: status, value: 0, target: self, status_id: strength, stacks: 2}

relics:
  - id: lucky_keyboard
    tier: starter
    params:
      - {name: gold_mult, value: 1.1}
  - id: coffee_mug
    tier: common
    params:
      - {name: heal_on_rest, value: 5}
  - id: mechanical_switch
    tier: common
    params:
      - {name: first_attack_bonus, value: 2}
  - id: dual_monitor
    tier: uncommon
    params:
      - {name: extra_draw, value: 1}
  - id: ssd_upgrade
    tier: uncommon
    params:
      - {name: energy_every_n_rounds, value: 3}
  - id: ci_pipeline
    tier: rare
    params:
      - {name: block_per_round, value: 3}
  - id: root_access
    tier: boss
    params:
      - {name: max_energy_bonus, value: 1}

statuses:
  - id: vulnerable
    debuff: true
    decays: true
    max_stacks: 9
  - id: weak
    debuff: true
    decays: true
    max_stacks: 9
  - id: strength
    debuff: false
    decays: false
    max_stacks: 99
  - id: burn
    debuff: true
    decays: true
    max_stacks: 9

enemies:
  - id: feature_gremlin
    type: feat
    tier: normal
    base_hp: 22
    base_damage: 6
    pattern: basic
    gold_mult: 1.0
    exp_mult: 1.0
  - id: bug_swarm
    type: fix
    tier: normal
    base_hp: 16
    base_damage: 8
    pattern: aggressive
    gold_mult: 1.0
    exp_mult: 1.0
  - id: doc_rot
    type: docs
    tier: normal
    base_hp: 18
    base_damage: 4
    base_block: 4
    pattern: defensive
    gold_mult: 0.8
    exp_mult: 0.8
  - id: spaghetti_mass
    type: refactor
    tier: normal
    base_hp: 26
    base_damage: 5
    pattern: cycle
    gold_mult: 1.1
    exp_mult: 1.1
  - id: flaky_test
    type: test
    tier: normal
    base_hp: 14
    base_damage: 7
    pattern: cycle
    gold_mult: 0.9
    exp_mult: 1.0
  - id: yak_stack
    type: chore
    tier: normal
    base_hp: 20
    base_damage: 5
    base_block: 2
    pattern: basic
    gold_mult: 0.9
    exp_mult: 0.9
  - id: perf_hog
    type: perf
    tier: normal
    base_hp: 24
    base_damage: 7
    pattern: aggressive
    gold_mult: 1.1
    exp_mult: 1.1
  - id: merge_wraith
    type: merge
    tier: elite
    base_hp: 45
    base_damage: 10
    base_block: 5
    pattern: cycle
    gold_mult: 1.5
    exp_mult: 1.5
  - id: revert_shade
    type: revert
    tier: elite
    base_hp: 40
    base_damage: 12
    pattern: aggressive
    gold_mult: 1.5
    exp_mult: 1.5
  - id: legacy_golem
    type: refactor
    tier: elite
    base_hp: 55
    base_damage: 9
    base_block: 8
    pattern: defensive
    gold_mult: 1.6
    exp_mult: 1.6
  - id: release_dragon
    type: feat
    tier: boss
    base_hp: 90
    base_damage: 14
    base_block: 6
    pattern: cycle
    gold_mult: 2.5
    exp_mult: 2.5
  - id: legacy_titan
    type: refactor
    tier: boss
    base_hp: 110
    base_damage: 12
    base_block: 10
    pattern: defensive
    gold_mult: 2.5
    exp_mult: 2.5

events:
  - id: test_shrine
    weights: {default: 3, initial: 1}
    choices:
      - id: pray
        text_key: event.test_shrine.pray
        effects:
          - {opcode: heal, value: 10}
      - id: offer
        text_key: event.test_shrine.offer
        condition: "gold >= 20"
        effects:
          - {opcode: lose_gold, value: 20}
          - {opcode: add_card, card_id: debug_strike}
      - id: leave
        text_key: event.test_shrine.leave
        effects: []
  - id: refactor_risk
    weights: {default: 2, legacy: 4}
    choices:
      - id: dive_in
        text_key: event.refactor_risk.dive_in
        effects:
          - {opcode: damage, value: 8}
          - {opcode: modify_bias, archetype: refactor_flow, delta: 0.5}
          - {opcode: add_card, card_id: refactor_sweep}
      - id: walk_away
        text_key: event.refactor_risk.walk_away
        effects:
          - {opcode: modify_bias, archetype: refactor_flow, delta: -0.5}
  - id: abandoned_branch
    weights: {default: 2}
    choices:
      - id: loot
        text_key: event.abandoned_branch.loot
        effects:
          - {opcode: gain_gold, value: 35}
          - {opcode: set_flag, flag: looted_branch, set: true}
      - id: inspect
        text_key: event.abandoned_branch.inspect
        effects:
          - {opcode: trigger_battle, enemy_id: revert_shade}
  - id: vending_machine
    weights: {default: 1, integration: 3}
    choices:
      - id: buy_snack
        text_key: event.vending_machine.buy
        condition: "gold >= 15 && hp < max_hp"
        effects:
          - {opcode: lose_gold, value: 15}
          - {opcode: heal, value: 12}
      - id: shake_it
        text_key: event.vending_machine.shake
        effects:
          - {opcode: damage, value: 3}
          - {opcode: gain_gold, value: 5}
      - id: leave
        text_key: event.vending_machine.leave
        effects: []

archetypes:
  - id: debug_beatdown
    tags: [debug, aggressive]
    starter_cards: [debug_strike, git_blame]
    starter_relics: [mechanical_switch]
  - id: test_fortress
    tags: [test, defensive]
    starter_cards: [lint_pass, breakpoint]
    starter_relics: [ci_pipeline]
  - id: refactor_flow
    tags: [refactor, scaling]
    starter_cards: [refactor_sweep, stack_trace]
    starter_relics: [dual_monitor]

characters:
  - id: junior_dev
    hp: 70
    energy: 3
    starter_cards: [strike, strike, strike, strike, defend, defend, defend, defend, quick_patch]
    starter_relics: [lucky_keyboard]
  - id: senior_dev
    hp: 60
    energy: 3
    starter_cards: [strike, strike, strike, defend, defend, defend, stack_trace, hotfix]
    starter_relics: [lucky_keyboard, dual_monitor]

chapter_overrides:
  initial:
    name: Initial Commit
    min_commits: 5
    max_commits: 10
    boss_chance: 0.0
    shop_enabled: false
    gold_bonus: 1.0
    exp_bonus: 1.0
    enemy_hp_multiplier: 0.8
    enemy_atk_multiplier: 0.8
  feature:
    name: Feature Branch
    min_commits: 8
    max_commits: 14
    boss_chance: 0.1
    shop_enabled: true
    gold_bonus: 1.0
    exp_bonus: 1.0
    enemy_hp_multiplier: 1.0
    enemy_atk_multiplier: 1.0
  fix:
    name: Bugfix Sprint
    min_commits: 6
    max_commits: 12
    boss_chance: 0.1
    shop_enabled: true
    gold_bonus: 1.2
    exp_bonus: 1.0
    enemy_hp_multiplier: 0.9
    enemy_atk_multiplier: 1.2
  integration:
    name: Integration Hell
    min_commits: 10
    max_commits: 14
    boss_chance: 0.3
    shop_enabled: true
    gold_bonus: 1.3
    exp_bonus: 1.3
    enemy_hp_multiplier: 1.2
    enemy_atk_multiplier: 1.1
  legacy:
    name: Legacy Depths
    min_commits: 10
    max_commits: 14
    boss_chance: 0.5
    shop_enabled: true
    gold_bonus: 1.5
    exp_bonus: 1.5
    enemy_hp_multiplier: 1.4
    enemy_atk_multiplier: 1.3
`
